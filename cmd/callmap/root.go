package main

import (
	"callmap/internal/version"

	"github.com/spf13/cobra"
)

var (
	// workspaceFlag overrides the workspace root (default: working directory)
	workspaceFlag string
	// timeoutFlag bounds every provider-facing operation, in seconds
	timeoutFlag int
)

var rootCmd = &cobra.Command{
	Use:   "callmap",
	Short: "callmap - call graph generation and navigation",
	Long: `callmap builds, stores, and navigates function/method call graphs for a
workspace. It orchestrates language servers, SCIP indexes, and tree-sitter
extraction behind one provider surface, normalizes symbol signatures across
language conventions, and can re-find a stored symbol after the source has
changed.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("callmap version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace", "",
		"Workspace root (default: current directory)")
	rootCmd.PersistentFlags().IntVar(&timeoutFlag, "timeout", 60,
		"Operation timeout in seconds")
}
