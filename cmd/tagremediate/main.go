// Command tagremediate audits the tagging of a cloud cost export and applies
// tag remediation edits to it.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
