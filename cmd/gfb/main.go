package main

import (
	"os"

	"github.com/solatis/gfb/cmd/gfb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
