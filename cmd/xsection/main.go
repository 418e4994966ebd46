package main

import (
	"os"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/cmd/xsection/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
