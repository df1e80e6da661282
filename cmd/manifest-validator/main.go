package main

import (
	"os"

	"github.com/mozilla/firefox-app-validator-manifest/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
