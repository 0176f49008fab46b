package main

import (
	"os"

	"cwatch-dashboard/backend/cli"
)

func main() {
	os.Exit(cli.Execute())
}
