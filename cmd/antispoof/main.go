// Package main is the entry point for the antispoof CLI.
//
// Usage:
//
//	antispoof [flags] <command> [args]
//
// Commands:
//
//	predict    - Classify audio files as REAL or FAKE per channel
//	serve      - Run the HTTP API
//	history    - Inspect stored predictions (list, get)
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/antispoof/cmd/antispoof/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
