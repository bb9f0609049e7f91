package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"callmap/internal/workspaces"
)

var workspacesFormat string

// workspaceRow is the CLI view of one registry entry.
type workspaceRow struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Active bool   `json:"active"`
}

var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "Manage the per-user workspace registry",
	Long: `The workspace registry (~/.callmap/workspaces.toml) names the
repositories the MCP server can switch between without restarting.`,
}

var workspacesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workspaces",
	Args:  cobra.NoArgs,
	RunE:  runWorkspacesList,
}

var workspacesAddCmd = &cobra.Command{
	Use:   "add PATH [NAME]",
	Short: "Register a workspace",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runWorkspacesAdd,
}

var workspacesRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Unregister a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspacesRemove,
}

var workspacesUseCmd = &cobra.Command{
	Use:   "use NAME",
	Short: "Mark a workspace as active",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspacesUse,
}

func init() {
	workspacesCmd.PersistentFlags().StringVar(&workspacesFormat, "format", "human", "Output format (json, human)")
	workspacesCmd.AddCommand(workspacesListCmd, workspacesAddCmd, workspacesRemoveCmd, workspacesUseCmd)
	rootCmd.AddCommand(workspacesCmd)
}

func openWorkspaceRegistry() (*workspaces.Registry, error) {
	path, err := workspaces.DefaultPath()
	if err != nil {
		return nil, err
	}
	return workspaces.Load(path)
}

func runWorkspacesList(cmd *cobra.Command, args []string) error {
	registry, err := openWorkspaceRegistry()
	if err != nil {
		return err
	}

	rows := make([]workspaceRow, 0, len(registry.Workspaces))
	active := registry.ActiveWorkspace()
	for _, w := range registry.List() {
		rows = append(rows, workspaceRow{
			Name:   w.Name,
			Path:   w.Path,
			Active: active != nil && active.Name == w.Name,
		})
	}
	printOperational(rows, workspacesFormat)
	return nil
}

func runWorkspacesAdd(cmd *cobra.Command, args []string) error {
	registry, err := openWorkspaceRegistry()
	if err != nil {
		return err
	}

	path := args[0]
	name := ""
	if len(args) == 2 {
		name = args[1]
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		name = filepath.Base(abs)
	}

	ws, err := registry.Add(name, path)
	if err != nil {
		return err
	}
	if err := registry.Save(); err != nil {
		return err
	}
	fmt.Printf("Registered workspace %s at %s\n", ws.Name, ws.Path)
	return nil
}

func runWorkspacesRemove(cmd *cobra.Command, args []string) error {
	registry, err := openWorkspaceRegistry()
	if err != nil {
		return err
	}
	if err := registry.Remove(args[0]); err != nil {
		return err
	}
	if err := registry.Save(); err != nil {
		return err
	}
	fmt.Printf("Removed workspace %s\n", args[0])
	return nil
}

func runWorkspacesUse(cmd *cobra.Command, args []string) error {
	registry, err := openWorkspaceRegistry()
	if err != nil {
		return err
	}
	if err := registry.SetActive(args[0]); err != nil {
		return err
	}
	if err := registry.Save(); err != nil {
		return err
	}
	fmt.Printf("Active workspace: %s\n", args[0])
	return nil
}
