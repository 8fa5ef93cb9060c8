package main

import (
	"os"

	"github.com/wonny/scout/cmd/scout/commands"
)

// main is the entry point for the Scout CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
