package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"callmap/internal/envelope"
	"callmap/internal/query"
)

var (
	graphDirection string
	graphDepth     int
	graphSave      bool
	graphFormat    string
)

var graphCmd = &cobra.Command{
	Use:   "graph FILE:LINE[:COL]",
	Short: "Build a call graph from the symbol at a position",
	Long: `Build a call graph rooted at the function or method under the given
position. Line and column are one-based.

Direction options:
  - callers: expand only functions that call this symbol
  - callees: expand only functions this symbol calls
  - both:    expand in both directions (default)

Examples:
  callmap graph internal/server/handler.go:42:6
  callmap graph --direction=callers --depth=3 pkg/service.py:120
  callmap graph --save --format=json main.go:15:6`,
	Args: cobra.ExactArgs(1),
	Run:  runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphDirection, "direction", "", "Direction to expand (callers, callees, both)")
	graphCmd.Flags().IntVar(&graphDepth, "depth", 0, "Maximum expansion depth (1-4, 0 = config default)")
	graphCmd.Flags().BoolVar(&graphSave, "save", false, "Persist the graph for later navigation")
	graphCmd.Flags().StringVar(&graphFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(graphFormat)

	path, pos, err := parseLocator(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	workspaceRoot := mustGetWorkspaceRoot()
	engine := mustGetEngine(workspaceRoot, logger)
	ctx, cancel := newContext()
	defer cancel()

	result, err := engine.BuildGraph(ctx, query.BuildGraphRequest{
		Path:      path,
		Position:  pos,
		Direction: graphDirection,
		Depth:     graphDepth,
		Save:      graphSave,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building graph: %v\n", err)
		os.Exit(1)
	}

	resp := envelope.New().
		Data(result).
		FromProvenance(result.Provenance).
		Build()

	output, err := FormatResponse(resp, OutputFormat(graphFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	logger.Debug("Graph build completed", map[string]interface{}{
		"nodes":    len(result.Graph.Nodes),
		"edges":    len(result.Graph.Edges),
		"saved":    result.Saved,
		"duration": time.Since(start).Milliseconds(),
	})
}
