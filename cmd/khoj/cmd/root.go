// Package cmd provides the CLI commands for khoj.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/remiges-tech/khoj"
	"github.com/remiges-tech/khoj/internal/config"
)

// app holds the state shared by every command: flags of the root command and
// what PersistentPreRunE derives from them.
type app struct {
	configPath string
	logLevel   string
	provider   string
	language   string
	noColor    bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd creates the root command for the khoj CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "khoj",
		Short: "Search Gurmukhi lines by first letters or words",
		Long: `khoj searches a corpus of Gurmukhi lines.

A query is typed in ASCII Gurmukhi. By default it matches the first letter of
consecutive words, and a space stands for any letter. A query starting with '#'
matches a run of whole words instead.

Examples:
  khoj index lines.jsonl
  khoj search jsq
  khoj search "#siq nwmu"
  khoj interactive`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVarP(&a.provider, "provider", "p", "", "Lookup backend: sqlite, bleve, redis, elasticsearch")
	cmd.PersistentFlags().StringVarP(&a.language, "language", "l", "", "Language of transliterations and translations")
	cmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newInteractiveCmd(a))
	cmd.AddCommand(newProvidersCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup loads the configuration, applies the flag overrides and builds the
// logger. Flags take precedence over the file and the environment.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.provider != "" {
		cfg.Provider = a.provider
	}
	if a.language != "" {
		cfg.Language = a.language
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.cfg = cfg

	a.logger.Debug("config_loaded",
		slog.String("provider", cfg.Provider),
		slog.String("namespace", cfg.Search.Namespace))
	return nil
}

// openSearcher connects to the configured lookup backend.
func (a *app) openSearcher() (khoj.Searcher, error) {
	s, err := khoj.New(a.cfg.Provider, a.cfg.KhojConfig(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s provider: %w", a.cfg.Provider, err)
	}
	return s, nil
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the available lookup backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range khoj.Providers() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
