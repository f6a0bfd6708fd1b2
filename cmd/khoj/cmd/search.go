package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiges-tech/khoj"
	"github.com/remiges-tech/khoj/query"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit              int
	format             string // "text", "json"
	noTranslations     bool
	noTransliterations bool
	noCitations        bool
}

// apply converts the flags to khoj.SearchOptions over the configured
// defaults.
func (o searchOptions) apply(base khoj.SearchOptions) khoj.SearchOptions {
	base.Limit = o.limit
	if o.noTranslations {
		base.IncludeTranslations = false
	}
	if o.noTransliterations {
		base.IncludeTransliterations = false
	}
	if o.noCitations {
		base.IncludeCitations = false
	}
	return base
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed lines",
		Long: `Search the indexed lines.

Arguments are joined with spaces. In first-letter mode a space stands for any
one letter, so quote the query to keep it as typed.

Examples:
  khoj search jsq
  khoj search "j q"
  khoj search "#siq nwmu"
  khoj search jsq --format json --no-translations`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, a, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 uses the configured default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.noTranslations, "no-translations", false, "Omit translations")
	cmd.Flags().BoolVar(&opts.noTransliterations, "no-transliterations", false, "Omit transliterations")
	cmd.Flags().BoolVar(&opts.noCitations, "no-citations", false, "Omit writer and section")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, a *app, raw string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q: use text or json", opts.format)
	}

	q := query.Parse(raw)

	s, err := a.openSearcher()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	a.logger.Debug("search_started", slog.String("query", q.String()), slog.String("mode", q.Mode.String()))

	results, err := s.Search(ctx, q, opts.apply(a.cfg.SearchOptions()))
	if errors.Is(err, khoj.ErrQueryTooShort) {
		return fmt.Errorf("query %q is too short: type at least %d letters", raw, a.cfg.Search.MinSearchChars)
	}
	if err != nil {
		return err
	}

	a.logger.Debug("search_complete", slog.Int("results", len(results)))

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	newRenderer(out, a.noColor, a.cfg.Language).results(out, q, results)
	return nil
}
