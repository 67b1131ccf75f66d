package main

import (
	"os"

	"dagao/cmd/dagao/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
