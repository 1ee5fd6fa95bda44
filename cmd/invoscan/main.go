// Package main is the entry point for the invoscan CLI.
package main

import (
	"os"

	"github.com/sheldonz/invoscan/cmd/invoscan/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
