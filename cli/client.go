package main

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aqua777/docquery/client"
	"github.com/aqua777/docquery/rag/reader"
	"github.com/aqua777/docquery/ui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the terminal UI against API_URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig(clientLoader)
		api := client.New(cfg.APIURL, client.WithLogger(logger))

		p := tea.NewProgram(ui.New(api), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		_, err := p.Run()
		return err
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <collection> <files...>",
	Short: "Upload files or directories into a collection",
	Long: `Upload files into a collection through the API. Directories are read
recursively. The collection is replaced by the uploaded files.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig(clientLoader)

		files, err := reader.LoadPaths(args[1:]...)
		if err != nil {
			return err
		}
		out := client.New(cfg.APIURL, client.WithLogger(logger)).Ingest(cmd.Context(), args[0], files)
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return resultError(out, "❌")
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <collection> <question>",
	Short: "Ask one question about a collection",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig(clientLoader)

		question := strings.Join(args[1:], " ")
		out := client.New(cfg.APIURL, client.WithLogger(logger)).Chat(cmd.Context(), args[0], question)
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return resultError(out, "Error: ", "Connection error: ")
	},
}

// errReported marks a failure already printed by the command.
var errReported = errors.New("request failed")

// resultError turns a formatted client failure into a non-zero exit.
func resultError(out string, prefixes ...string) error {
	for _, p := range prefixes {
		if strings.HasPrefix(out, p) {
			return errReported
		}
	}
	return nil
}
