// Package main is the CLI command itself.
package main

import (
	"os"

	aethercli "go.aether.dev/aether/cli"
)

func main() {
	app := aethercli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		aethercli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
