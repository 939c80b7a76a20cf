// Package main provides the entry point for the kbmcp CLI.
package main

import (
	"os"

	"github.com/kbforge/kbmcp/cmd/kbmcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
