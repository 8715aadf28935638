package main

import "github.com/UnknownOlympus/locator/internal/cli"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// main is the entry point of the application.
func main() {
	cli.Execute(version)
}
