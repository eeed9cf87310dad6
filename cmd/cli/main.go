package main

import (
	"os"

	"github.com/taskwiz/taskwiz/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
