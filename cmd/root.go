// Package cmd implements the fontpipe command line interface.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fontpipe/fontpipe/internal/config"
	"github.com/fontpipe/fontpipe/internal/executil"
	"github.com/fontpipe/fontpipe/internal/ninja"
	"github.com/fontpipe/fontpipe/internal/recipe"
	"github.com/fontpipe/fontpipe/internal/source"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "fontpipe",
	Short:         "Compile font build graphs and drive ninja",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"log level (debug, info, warn, error)")
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: l})))
}

// Execute runs the CLI and maps failures to exit codes: configuration
// faults exit 2, source and recipe faults 3, emission faults 4, and a
// failed executor run mirrors ninja's own exit status.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "fontpipe:", err)
	return exitCode(err)
}

func exitCode(err error) int {
	var (
		cfgErr  *config.Error
		srcErr  *source.Error
		recErr  *recipe.Error
		emitErr *ninja.Error
		runErr  *executil.ExitError
	)
	switch {
	case errors.As(err, &runErr):
		return runErr.Code
	case errors.As(err, &cfgErr):
		return 2
	case errors.As(err, &srcErr), errors.As(err, &recErr):
		return 3
	case errors.As(err, &emitErr):
		return 4
	}
	return 1
}
