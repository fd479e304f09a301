// Package main is the vecsearch CLI entry point.
package main

import (
	"os"

	"github.com/hyperjump/vecsearch/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
