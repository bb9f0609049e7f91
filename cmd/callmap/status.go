package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider and store status",
	Long:  "Display which symbol providers can serve this workspace and what the graph store holds",
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(statusFormat)
	engine := mustGetEngine(mustGetWorkspaceRoot(), logger)

	result, err := engine.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting status: %v\n", err)
		os.Exit(1)
	}
	printOperational(result, statusFormat)

	if statusFormat == "human" {
		fmt.Printf("\n(Query took %dms)\n", time.Since(start).Milliseconds())
	}
}
