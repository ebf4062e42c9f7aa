package main

import (
	"os"

	"github.com/Itish41/DocIntel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
