// Package cmd implements the command-line interface for the planner.
//
// This package provides the following commands:
//   - chat: Start an interactive planning conversation in the terminal
//   - serve: Start the MCP server exposing the planner tools to AI assistants
//   - version: Display version information
//
// The chat command is the default command when no subcommand is specified.
package cmd
