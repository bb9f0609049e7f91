package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"callmap/internal/envelope"
)

var (
	graphsFormat string
	graphsTopK   int
)

var graphsCmd = &cobra.Command{
	Use:   "graphs",
	Short: "Manage stored call graphs",
}

var graphsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored graphs, newest first",
	Args:  cobra.NoArgs,
	Run:   runGraphsList,
}

var graphsShowCmd = &cobra.Command{
	Use:   "show GRAPH",
	Short: "Print a stored graph with its node statuses",
	Args:  cobra.ExactArgs(1),
	Run:   runGraphsShow,
}

var graphsDeleteCmd = &cobra.Command{
	Use:   "delete GRAPH",
	Short: "Delete a stored graph",
	Args:  cobra.ExactArgs(1),
	Run:   runGraphsDelete,
}

var graphsRankCmd = &cobra.Command{
	Use:   "rank GRAPH",
	Short: "Rank a stored graph's nodes by structural weight",
	Args:  cobra.ExactArgs(1),
	Run:   runGraphsRank,
}

func init() {
	graphsCmd.PersistentFlags().StringVar(&graphsFormat, "format", "human", "Output format (json, human)")
	graphsRankCmd.Flags().IntVar(&graphsTopK, "top", 0, "Number of top nodes to show (0 = default)")
	graphsCmd.AddCommand(graphsListCmd, graphsShowCmd, graphsDeleteCmd, graphsRankCmd)
	rootCmd.AddCommand(graphsCmd)
}

func printOperational(data interface{}, format string) {
	output, err := FormatResponse(envelope.Operational(data), OutputFormat(format))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

func runGraphsList(cmd *cobra.Command, args []string) {
	logger := newLogger(graphsFormat)
	engine := mustGetEngine(mustGetWorkspaceRoot(), logger)

	metas, err := engine.ListGraphs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing graphs: %v\n", err)
		os.Exit(1)
	}
	printOperational(metas, graphsFormat)
}

func runGraphsShow(cmd *cobra.Command, args []string) {
	logger := newLogger(graphsFormat)
	engine := mustGetEngine(mustGetWorkspaceRoot(), logger)

	result, err := engine.GetGraph(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading graph: %v\n", err)
		os.Exit(1)
	}
	printOperational(result, graphsFormat)
}

func runGraphsDelete(cmd *cobra.Command, args []string) {
	logger := newLogger(graphsFormat)
	engine := mustGetEngine(mustGetWorkspaceRoot(), logger)

	if err := engine.DeleteGraph(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting graph: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted graph %s\n", args[0])
}

func runGraphsRank(cmd *cobra.Command, args []string) {
	logger := newLogger(graphsFormat)
	engine := mustGetEngine(mustGetWorkspaceRoot(), logger)

	ranking, err := engine.RankGraph(args[0], graphsTopK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error ranking graph: %v\n", err)
		os.Exit(1)
	}
	printOperational(ranking, graphsFormat)
}
