package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"callmap/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize callmap configuration",
	Long:  "Creates a .callmap/ directory with default configuration under the workspace root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	workspaceRoot, err := getWorkspaceRoot()
	if err != nil {
		return err
	}

	configPath := filepath.Join(workspaceRoot, ".callmap", "config.json")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Idempotent: already initialized is success.
		fmt.Println("callmap already initialized.")
		fmt.Printf("Configuration at: %s\n", configPath)
		fmt.Println("\nRun 'callmap init --force' to overwrite.")
		return nil
	}

	cfg := config.DefaultConfig()
	cfg.WorkspaceRoot = "."
	if err := cfg.Save(workspaceRoot); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	fmt.Println("Initialized callmap.")
	fmt.Printf("Configuration at: %s\n", configPath)
	return nil
}
