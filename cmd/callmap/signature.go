package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"callmap/internal/envelope"
	"callmap/internal/query"
)

var signatureFormat string

var signatureCmd = &cobra.Command{
	Use:   "signature FILE:LINE[:COL]",
	Short: "Show the normalized signature of the symbol at a position",
	Long: `Resolve the symbol under the given position and print its canonical
name and parameter signature. Hover text is preferred as the signature
source; the symbol's own name and detail strings are the fallback.

Examples:
  callmap signature internal/calc/calc.go:40:6
  callmap signature --format=json src/service.ts:12`,
	Args: cobra.ExactArgs(1),
	Run:  runSignature,
}

func init() {
	signatureCmd.Flags().StringVar(&signatureFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(signatureCmd)
}

func runSignature(cmd *cobra.Command, args []string) {
	logger := newLogger(signatureFormat)

	path, pos, err := parseLocator(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	workspaceRoot := mustGetWorkspaceRoot()
	engine := mustGetEngine(workspaceRoot, logger)
	ctx, cancel := newContext()
	defer cancel()

	result, err := engine.Signature(ctx, query.SignatureRequest{Path: path, Position: pos})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving signature: %v\n", err)
		os.Exit(1)
	}

	resp := envelope.New().
		Data(result).
		FromProvenance(result.Provenance).
		Build()

	output, err := FormatResponse(resp, OutputFormat(signatureFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
