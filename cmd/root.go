// Package cmd contains the CLI commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sago-labs/sago/internal/config"
	"github.com/sago-labs/sago/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "sago",
	Short: "Sago - chat backend with streaming relay",
	Long: `Sago is the HTTP backend for the Sago chat application.

It relays chat turns to a configured model provider, streams replies
over Server-Sent Events, and persists transcripts in PostgreSQL.

Run "sago serve" to start the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from the loaded configuration.
// Every command that touches the database or the provider uses it.
func newLogger(cfg *config.Config) log.Logger {
	return log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
}
