package main

import (
	"os"

	"github.com/parkpulse/parkpulse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
