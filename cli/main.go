package main

import (
	"os"

	"github.com/driftlock/driftlock/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
