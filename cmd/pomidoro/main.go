package main

import (
	"os"

	"github.com/pomidoro/pomidoro/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
