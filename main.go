package main

import (
	"os"

	"github.com/klundeen/5300-Antelope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
