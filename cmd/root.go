// Package cmd holds the trendaryo command line: the API server and the
// database maintenance commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "trendaryo",
	Short: "Trendaryo storefront API",
	Long: `Trendaryo serves the storefront API: catalog, reviews, carts,
orders, payments and receipts.

Run "trendaryo serve" to start the server, or use the seed and indexes
commands to prepare a MongoDB database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(os.Stderr, logLevel, os.Getenv("APP_ENV") == "production")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// setupLogging configures the global logger. Production logs are JSON lines;
// everywhere else they go through the console writer.
func setupLogging(out io.Writer, level string, production bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	if !production {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
