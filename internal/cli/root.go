// Package cli wires configuration, storage and the session into cobra commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags: -ldflags "-X github.com/example/musclecards/internal/cli.Version=1.0.0"
var Version = "dev"

type rootOptions struct {
	configPath  string
	catalogPath string
}

// NewRootCmd builds the command tree. Every call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "musclecards",
		Short:         "Spaced repetition flashcards for muscle anatomy",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Config file (default configs/<CONFIG_NAME|default>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "",
		"Catalog file (.xlsx, .csv or .yaml), overrides catalog.path")

	cmd.AddCommand(
		newBotCmd(opts),
		newReviewCmd(opts),
		newDueCmd(opts),
		newSaveCodeCmd(opts),
		newLinkCmd(opts),
		newResumeCmd(opts),
		newResetCmd(opts),
		newStatsCmd(opts),
		newHistoryCmd(opts),
		newCatalogCmd(opts),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setupLogger(env string) *zap.Logger {
	var logger *zap.Logger
	if env == "development" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}
