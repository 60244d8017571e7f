package dashboard

import (
	"context"

	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/resource"
)

// PushEvents subscribes to a Resource Manager's event bus and rebroadcasts
// every mutation to connected dashboard clients until ctx is cancelled.
func PushEvents[T resource.Object](ctx context.Context, hub *Hub, rm *manager.RM[T], kind string) {
	events := rm.Events(32)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				hub.Broadcast(kind+"."+string(ev.Kind), ev.Entity)
			}
		}
	}()
}
