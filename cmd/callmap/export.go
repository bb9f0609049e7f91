package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export GRAPH",
	Short: "Export a stored graph as JSON, YAML, or Graphviz DOT",
	Long: `Render a stored call graph in an interchange format.

Examples:
  callmap export 2f6e... --format=dot -o graph.dot
  callmap export 2f6e... --format=yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format (json, yaml, dot)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	logger := newLogger("human")
	engine := mustGetEngine(mustGetWorkspaceRoot(), logger)

	payload, err := engine.ExportGraph(args[0], exportFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting graph: %v\n", err)
		os.Exit(1)
	}

	if exportOutput == "" {
		os.Stdout.Write(payload)
		if len(payload) > 0 && payload[len(payload)-1] != '\n' {
			fmt.Println()
		}
		return
	}

	if err := os.WriteFile(exportOutput, payload, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", exportOutput, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", exportOutput, len(payload))
}
