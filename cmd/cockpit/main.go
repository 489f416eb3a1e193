package main

import (
	"os"

	"github.com/rustyeddy/cockpit/cmd/cockpit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
