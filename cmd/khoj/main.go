// Package main provides the entry point for the khoj CLI.
package main

import (
	"os"

	"github.com/remiges-tech/khoj/cmd/khoj/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
