package main

import (
	"fmt"
	"os"

	"code.pismoprotocol.io/pismo/config"
)

type initCmd struct {
	RootPath string `short:"r" long:"root-path" description:"Path of the root directory in which the configuration will be located"`
	Force    bool   `short:"f" long:"force" description:"Overwrite an existing configuration"`
}

func (cmd *initCmd) Execute(_ []string) error {
	rootPath := cmd.RootPath
	if rootPath == "" {
		rootPath = defaultRootPath()
	}
	if _, err := config.Read(rootPath); err == nil && !cmd.Force {
		return fmt.Errorf("configuration already exists at %s, use --force to overwrite", rootPath)
	}
	cfg := config.NewDefaultConfig()
	if err := config.Write(rootPath, &cfg); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "configuration written to %s\n", rootPath)
	return nil
}
