package main

import (
	"fmt"
	"os"

	"github.com/reelcraft/reelcraft/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		os.Exit(1)
	}
}
