package main

import (
	"os"

	"github.com/rcliao/gene-ledger/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
