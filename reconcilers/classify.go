package reconcilers

import "github.com/forgebase/forge/store"

func isConflict(err error) bool  { return store.IsConflict(err) }
func isTransient(err error) bool { return store.IsTransient(err) }
