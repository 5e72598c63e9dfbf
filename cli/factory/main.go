package main

import (
	"os"

	factorycmder "github.com/papercomputeco/factory/cmd/factory"
)

func main() {
	cmd := factorycmder.NewFactoryCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
