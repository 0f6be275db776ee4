package main

import (
	"fmt"
	"os"

	"github.com/tomatool/loginsuite/command"
)

func main() {
	if err := command.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
