package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vish4lsharma/extractor/internal/observability"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "extractctl",
	Short:         "Extract text and structure from PDFs, images and spreadsheets",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (json or console)")
}

func newLogger() zerolog.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       logLevel,
		Format:      logFormat,
		Output:      os.Stderr,
		ServiceName: "extractctl",
	})
}
