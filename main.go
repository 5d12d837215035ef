// Package main is the entry point for the board bot.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/danielolaszy/boardbot/cmd"
	"github.com/danielolaszy/boardbot/internal/logging"
)

// main executes the root command and handles any errors that occur.
func main() {
	// A missing .env file is fine, credentials can come from the environment.
	if err := godotenv.Load(); err == nil {
		logging.Debug("loaded environment from .env file")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logging.Info("starting boardbot", "version", "1.0.0", "log_level", logLevel)

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
