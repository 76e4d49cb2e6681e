package main

import (
	"os"

	"github.com/debtcheck/debtcheck/internal/cli"
)

func main() {
	cli.InitCLI()
	os.Exit(cli.ExecuteWithErrorCode(os.Args[1:]))
}
