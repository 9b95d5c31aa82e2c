// Package main is the entry point for the modelctl CLI binary.
package main

import (
	"os"

	"github.com/mhrivnak/modeldash/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
