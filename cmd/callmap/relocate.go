package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"callmap/internal/envelope"
	"callmap/internal/query"
)

var relocateFormat string

var relocateCmd = &cobra.Command{
	Use:   "relocate GRAPH NODE",
	Short: "Re-find a stored graph node in the current source",
	Long: `Look up where a node of a saved call graph lives in the file as it
exists today. NODE accepts a node ID or a node label. When the source
file is unchanged since the graph was saved, the stored location is
returned without a search. A relocation miss flags the node as broken
in the store.

Examples:
  callmap relocate 2f6e... multiply
  callmap relocate --format=json 2f6e... 8c41...`,
	Args: cobra.ExactArgs(2),
	Run:  runRelocate,
}

func init() {
	relocateCmd.Flags().StringVar(&relocateFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(relocateCmd)
}

func runRelocate(cmd *cobra.Command, args []string) {
	logger := newLogger(relocateFormat)

	workspaceRoot := mustGetWorkspaceRoot()
	engine := mustGetEngine(workspaceRoot, logger)
	ctx, cancel := newContext()
	defer cancel()

	result, err := engine.Relocate(ctx, query.RelocateRequest{
		GraphID: args[0],
		Node:    args[1],
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error relocating symbol: %v\n", err)
		os.Exit(1)
	}

	resp := envelope.New().
		Data(result).
		FromProvenance(result.Provenance).
		WithRelocation(result.Match).
		Build()

	output, err := FormatResponse(resp, OutputFormat(relocateFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
