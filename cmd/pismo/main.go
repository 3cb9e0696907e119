package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

func main() {
	parser := flags.NewNamedParser("pismo", flags.Default)

	if _, err := parser.AddCommand(
		"init",
		"Write a default configuration",
		"Write a default config.toml into the root path",
		&initCmd{},
	); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if _, err := parser.AddCommand(
		"run",
		"Run the risk engine",
		"Run the risk engine node with the configuration found in the root path",
		&runCmd{},
	); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}
}

// defaultRootPath is where config.toml lives unless overridden.
func defaultRootPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pismo"
	}
	return home + "/.pismo"
}
