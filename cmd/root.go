package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the planner application
var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Conversational planning assistant for your calendars",
	Long: `planner is a conversational assistant that schedules tasks on your Google
calendars, finds free time slots, keeps a to-do list, and learns about you
and your preferences over time.

It can run as:
  - An interactive terminal chat (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "planner version %s\n" .Version}}`)

	// If no subcommand is provided, start the chat by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "chat")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
