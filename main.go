package main

import (
	"os"

	"github.com/imishinist/slurm-exp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
