package main

import (
	"os"

	"github.com/playhead-dev/playhead/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
