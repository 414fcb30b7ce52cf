package main

import (
	"os"

	"github.com/semindex/semindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
