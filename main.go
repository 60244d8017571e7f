// Command forge runs the forge control plane: a generic watch/reconcile
// controller runtime over a CouchDB document store, paired with a
// live-reloaded ACL enforcement engine and the HTTP boundary in front of
// both.
package main

import (
	"log"

	"github.com/forgebase/forge/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
