// Command trajectoryctl runs archive operations from the shell against the
// configured store: pending subjects, roster import, course reports,
// interpreter commands and database migrations.
package main

import (
	"fmt"
	"os"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
