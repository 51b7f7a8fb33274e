// Package main is the entry point for the fim file integrity scan engine CLI.
// It initializes all subcommands and executes the root command.
package main

import (
	"github.com/lucho00cuba/fim/cmd"
	_ "github.com/lucho00cuba/fim/cmd/scan"
)

// main is the entry point of the application.
// It executes the root command which handles all CLI interactions.
func main() {
	cmd.Execute()
}
