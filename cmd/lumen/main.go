package main

import (
	"os"

	"github.com/lumenlang/lumen/pkg/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:]))
}
