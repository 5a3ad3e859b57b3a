// Package main provides the entry point for the cie-server CLI.
package main

import (
	"os"

	"github.com/iceinvein/code-intelligence-mcp-server/cmd/cie-server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
