package main

import (
	"os"

	"github.com/taskhub/task-tracker/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
