package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"callmap/internal/config"
	"callmap/internal/logging"
	"callmap/internal/query"
)

var (
	engineOnce   sync.Once
	sharedEngine *query.Engine
	engineErr    error
)

// getEngine returns a shared query engine for the workspace. The engine
// is lazily initialized on first use so commands that never touch a
// provider pay nothing.
func getEngine(workspaceRoot string, logger *logging.Logger) (*query.Engine, error) {
	engineOnce.Do(func() {
		cfg, err := config.LoadConfig(workspaceRoot)
		if err != nil {
			logger.Warn("Failed to load config, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = config.DefaultConfig()
			cfg.WorkspaceRoot = workspaceRoot
		}

		engine, err := query.NewEngine(cfg, logger)
		if err != nil {
			engineErr = fmt.Errorf("failed to create engine: %w", err)
			return
		}
		sharedEngine = engine
	})

	return sharedEngine, engineErr
}

// mustGetEngine returns the shared query engine or exits on error.
func mustGetEngine(workspaceRoot string, logger *logging.Logger) *query.Engine {
	engine, err := getEngine(workspaceRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return engine
}

// closeEngine shuts down any language servers the shared engine started
// and closes the store. Safe to call when no engine was ever built.
func closeEngine() {
	if sharedEngine != nil {
		_ = sharedEngine.Close()
	}
}

// getWorkspaceRoot resolves the workspace root from the --workspace
// flag, falling back to the working directory.
func getWorkspaceRoot() (string, error) {
	if workspaceFlag != "" {
		return filepath.Abs(workspaceFlag)
	}
	return os.Getwd()
}

// mustGetWorkspaceRoot returns the workspace root or exits on error.
func mustGetWorkspaceRoot() string {
	root, err := getWorkspaceRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// newContext creates the bounded context for one command execution.
func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(timeoutFlag)*time.Second)
}

// newLogger creates a logger with the specified format.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logging.InfoLevel,
	})
}
