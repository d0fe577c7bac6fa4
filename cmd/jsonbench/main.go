package main

import (
	"os"

	"json-decode-bench/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
