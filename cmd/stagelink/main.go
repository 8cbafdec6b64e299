package main

import (
	"os"

	"github.com/trustdrive/stagelink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
