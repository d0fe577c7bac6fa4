// Package cli implements the headless jsonbench command.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"json-decode-bench/internal/config"
	"json-decode-bench/internal/domain"
)

// env carries dependencies shared by every subcommand.
type env struct {
	store  config.Store
	logger *slog.Logger
}

// NewRootCmd builds the command tree on top of store.
func NewRootCmd(store config.Store) *cobra.Command {
	e := &env{store: store, logger: slog.Default()}

	rootCmd := &cobra.Command{
		Use:           "jsonbench",
		Short:         "Benchmark parallel decoding of a JSON document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("log-level")
			level, err := parseLevel(raw)
			if err != nil {
				return err
			}
			e.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(RunCmd(e))
	rootCmd.AddCommand(CompareCmd(e))
	rootCmd.AddCommand(GenerateCmd(e))
	return rootCmd
}

// Execute runs the CLI against the default settings file and returns the
// process exit code.
func Execute() int {
	store := config.NewJSONStore(config.DefaultSettingsPath())
	if err := NewRootCmd(store).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// addRunFlags registers the flags that override persisted settings.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("threads", "t", 0, "Concurrency width (clamped to the CPU count)")
	cmd.Flags().IntP("files", "n", 0, "Replication factor: how many times the document is decoded")
	cmd.Flags().StringP("strategy", "s", "", "Execution strategy (auto, sequential, bounded, system)")
	cmd.Flags().StringP("codec", "c", "", "Decoder (std, stream)")
	cmd.Flags().String("source", "", "Path of the JSON document; empty uses the saved path or the bundled sample")
}

// resolveSettings loads persisted settings and applies explicitly set flags.
func (e *env) resolveSettings(cmd *cobra.Command) (domain.Settings, error) {
	settings, err := e.store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("threads") {
		settings.Threads, _ = flags.GetInt("threads")
	}
	if flags.Changed("files") {
		settings.Files, _ = flags.GetInt("files")
	}
	if flags.Changed("strategy") {
		raw, _ := flags.GetString("strategy")
		strategy, err := domain.ParseStrategy(raw)
		if err != nil {
			return domain.Settings{}, err
		}
		settings.Strategy = strategy
	}
	if flags.Changed("codec") {
		raw, _ := flags.GetString("codec")
		codec, err := domain.ParseCodec(raw)
		if err != nil {
			return domain.Settings{}, err
		}
		settings.Codec = codec
	}
	if flags.Changed("source") {
		settings.SourcePath, _ = flags.GetString("source")
	}
	return settings.Normalize(), nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}
