package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lueurxax/event-tagger/internal/app"
	"github.com/lueurxax/event-tagger/internal/platform/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cli carries state shared by subcommands.
type cli struct {
	cfg    *config.Config
	logger *zerolog.Logger
	app    *app.App
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "event-tagger",
		Short: "Event tagging service and evaluation harness",
		Long: `event-tagger predicts up to three tags for Danish event listings with a
language model and measures prediction quality against a labeled dataset.

Run 'event-tagger evaluate' to score the configured dataset.
Run 'event-tagger serve' to start the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			return c.init()
		},
	}

	rootCmd.AddCommand(
		evaluateCmd(c),
		tagCmd(c),
		tagsCmd(c),
		serveCmd(c),
		versionCmd(),
	)

	return rootCmd
}

func (c *cli) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	c.cfg = cfg
	c.logger = &logger
	c.app = app.New(cfg, &logger)

	return nil
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "event-tagger %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
