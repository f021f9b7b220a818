// Package main provides fhirctl, a command line tool for inspecting FHIR
// documents with the HealthBridge parser and for operator chores such as
// issuing API tokens.
package main

import (
	"os"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
