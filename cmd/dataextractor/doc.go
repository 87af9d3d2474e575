// Package dataextractor provides the command-line interface for the
// dataextractor tool. It configures subcommands (scan, profiles, filter,
// config, history), parses flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/redactyl/dataextractor/cmd/dataextractor"
//	func main() { dataextractor.Execute() }
package dataextractor
