// Command docquery runs the document query backend, its terminal UI and a few
// one-shot commands against the HTTP API.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aqua777/docquery/config"
)

var envFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "docquery",
	Short: "Ask questions about your documents",
	Long: `docquery ingests documents into named collections and answers
questions about them with a retrieval-augmented chat model.

Configuration is read from the environment and an optional .env file.
API_URL, APP_MODEL and DB_NAME are required.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the process environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(chatCmd)
}

// Loaders for the backend and for the commands that only call the API.
var (
	backendLoader = config.Load
	clientLoader  = config.LoadClient
)

// loadConfig loads the configuration and a logger for it. Missing required
// variables are logged and end the process.
func loadConfig(load func(...string) (*config.Config, error)) (*config.Config, *slog.Logger) {
	cfg, err := load(envFile)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		if errors.Is(err, config.ErrMissingVariables) {
			logger.Error("Configuration incomplete", "error", err)
		} else {
			logger.Error("Failed to load configuration", "error", err)
		}
		os.Exit(1)
	}
	return cfg, cfg.NewLogger(os.Stderr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errReported) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
