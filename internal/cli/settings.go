package cli

import (
	"context"
	"log/slog"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/roach88/iseven/internal/config"
)

// resolveConfig layers explicitly set flags over the file and environment
// settings and validates the result.
func resolveConfig(cmd *cobra.Command, opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(cmd.Context(), config.Options{
		File:     opts.ConfigFile,
		Lookuper: opts.Env,
	})
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("assets") {
		cfg.Assets = opts.Assets
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("queue-capacity") {
		cfg.QueueCapacity = opts.QueueCapacity
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = opts.ChunkSize
	}
	if flags.Changed("journal") {
		cfg.Journal = opts.Journal
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if flags.Changed("progress") {
		cfg.ProgressInterval = opts.Progress
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// withLogger attaches a text logger on the command's error stream.
// Only warnings and errors are shown unless --verbose is set, so the
// output stream carries nothing but the answer.
func withLogger(ctx context.Context, cmd *cobra.Command, opts *RootOptions) context.Context {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})
	return clog.WithLogger(ctx, clog.New(handler))
}
