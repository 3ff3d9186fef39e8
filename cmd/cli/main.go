package main

import (
	"os"

	"github.com/fmcg-dev/fmcg/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
