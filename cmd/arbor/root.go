package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arborhq/arbor/internal/logging"
)

var logLevel string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arbor",
		Short: "Entity-driven state machines",
		Long: "Arbor runs finite state machines whose transitions are driven by\n" +
			"observable entity values and occupancy timeouts, defined in YAML.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newGraphCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", logLevel)
	}
	return logging.New(level), nil
}
