// Package main provides the ciris CLI tool.
//
// Usage:
//
//	ciris [flags] <command> [args]
//
// Commands:
//
//	interact - Send a message to the agent and print the response
//	stream   - Follow the agent's real-time event stream
//	status   - Show agent status and system health
//	login    - Authenticate and store a session token
//	config   - Configuration management
//	version  - Print version information
//
// Configuration:
//
//	The CLI stores configuration in ~/.ciris/
//	Use 'ciris config' commands to manage server contexts.
package main

import (
	"fmt"
	"os"

	"github.com/ciris-ai/ciris-go/cmd/ciris/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
