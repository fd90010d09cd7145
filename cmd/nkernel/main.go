package main

import (
	"fmt"
	"os"

	"github.com/muir/nkernel/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nkernel:", err)
		os.Exit(1)
	}
}
