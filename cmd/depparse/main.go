// Package main is the entry point for the depparse CLI.
package main

import (
	"os"

	"github.com/nlpstack/depparse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
