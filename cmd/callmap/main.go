package main

import (
	"os"

	"callmap/internal/logging"
)

func main() {
	err := rootCmd.Execute()
	closeEngine()
	if err != nil {
		logger := logging.NewLogger(logging.Config{
			Format: logging.HumanFormat,
			Level:  logging.InfoLevel,
		})
		logger.Error("Command execution failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
