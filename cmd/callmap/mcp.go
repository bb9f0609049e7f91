package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"callmap/internal/logging"
	"callmap/internal/mcp"
	"callmap/internal/version"
	"callmap/internal/workspaces"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server.

The server communicates over stdio using JSON-RPC 2.0 and exposes the
callmap operations as tools:
  - buildCallGraph:  build a call graph from a position
  - getSignature:    normalized symbol signature at a position
  - relocateSymbol:  re-find a stored graph node
  - listGraphs, getGraph, deleteGraph
  - listServers, getStatus
  - listWorkspaces, switchWorkspace

This command is typically invoked by MCP clients, not directly by users.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// Logs go to stderr; stdout carries the protocol.
	logger := logging.NewLogger(logging.Config{
		Format: logging.JSONFormat,
		Level:  logging.InfoLevel,
		Output: os.Stderr,
	})

	workspaceRoot := mustGetWorkspaceRoot()
	engine := mustGetEngine(workspaceRoot, logger)

	registry := loadWorkspaceRegistry(logger)
	if registry != nil {
		if _, err := registry.Add(filepath.Base(workspaceRoot), workspaceRoot); err == nil {
			if err := registry.Save(); err != nil {
				logger.Warn("Failed to save workspace registry", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	server := mcp.NewServer(version.Version, engine, registry, logger)
	if err := server.Start(); err != nil {
		logger.Error("MCP server error", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// loadWorkspaceRegistry opens the user-level workspace registry. A nil
// return disables the workspace tools but never blocks the server.
func loadWorkspaceRegistry(logger *logging.Logger) *workspaces.Registry {
	path, err := workspaces.DefaultPath()
	if err != nil {
		logger.Warn("Workspace registry unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	registry, err := workspaces.Load(path)
	if err != nil {
		logger.Warn("Failed to load workspace registry", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}
	return registry
}
