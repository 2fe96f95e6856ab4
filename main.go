package main

import (
	"os"

	"github.com/mishra-lab/scheduler/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
