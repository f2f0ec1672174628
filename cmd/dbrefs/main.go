// Package main provides the dbrefs command.
package main

import (
	"os"

	"github.com/leapstack-labs/dbrefs/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
