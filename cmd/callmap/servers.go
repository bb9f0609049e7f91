package main

import (
	"github.com/spf13/cobra"
)

var serversFormat string

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List registered language servers",
	Long: `List every language server known to this workspace: built-in defaults,
SERVERS.toml declarations, and config overrides, with their install and
run state.`,
	Args: cobra.NoArgs,
	Run:  runServers,
}

func init() {
	serversCmd.Flags().StringVar(&serversFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(serversCmd)
}

func runServers(cmd *cobra.Command, args []string) {
	logger := newLogger(serversFormat)
	engine := mustGetEngine(mustGetWorkspaceRoot(), logger)
	printOperational(engine.Servers(), serversFormat)
}
