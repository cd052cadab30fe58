// Package whispers provides the command-line interface for the whispers
// secret scanner. It configures subcommands (scan, rules, config, ignore,
// version), parses flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/adeptex/whispers/cmd/whispers"
//	func main() { whispers.Execute() }
package whispers
