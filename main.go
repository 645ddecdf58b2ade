package main

import (
	"os"

	"github.com/ClementNerma/rebackup/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
