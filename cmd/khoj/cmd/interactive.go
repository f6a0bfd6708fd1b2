package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/remiges-tech/khoj"
	"github.com/remiges-tech/khoj/query"
)

const defaultResponseTimeout = 5 * time.Second

func newInteractiveCmd(a *app) *cobra.Command {
	var (
		opts       searchOptions
		keystrokes bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Search each input line as it is typed",
		Long: `Read queries from standard input, one per line, and print the results
of each as they arrive.

With --keystrokes every prefix of a line is sent as a separate edit, the way a
search box sees typing. Only the results for the whole line are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd.Context(), cmd, a, opts, keystrokes, timeout)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 uses the configured default)")
	cmd.Flags().BoolVar(&opts.noTranslations, "no-translations", false, "Omit translations")
	cmd.Flags().BoolVar(&opts.noTransliterations, "no-transliterations", false, "Omit transliterations")
	cmd.Flags().BoolVar(&opts.noCitations, "no-citations", false, "Omit writer and section")
	cmd.Flags().BoolVarP(&keystrokes, "keystrokes", "k", false, "Send every prefix of a line as an edit")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultResponseTimeout, "How long to wait for the results of a line")

	return cmd
}

func runInteractive(ctx context.Context, cmd *cobra.Command, a *app, opts searchOptions, keystrokes bool, timeout time.Duration) error {
	s, err := a.openSearcher()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	sessionOpts := []khoj.SessionOption{
		khoj.WithLogger(a.logger),
		khoj.WithMinSearchChars(a.cfg.Search.MinSearchChars),
		khoj.WithSearchOptions(opts.apply(a.cfg.SearchOptions())),
	}
	if a.cfg.Session.Workers > 0 {
		sessionOpts = append(sessionOpts, khoj.WithPoolSize(a.cfg.Session.Workers))
	}

	session, err := khoj.NewSession(s, sessionOpts...)
	if err != nil {
		return err
	}
	defer session.Close()

	out := cmd.OutOrStdout()
	p := &printer{out: out, r: newRenderer(out, a.noColor, a.cfg.Language), minChars: session.MinSearchChars()}
	session.Subscribe(p.show)

	in := cmd.InOrStdin()
	prompt := isTTY(in)

	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			_, _ = fmt.Fprint(out, "khoj> ")
		}
		if !scanner.Scan() {
			break
		}

		raw := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		settled := p.expect(query.Parse(raw))
		for _, edit := range edits(raw, keystrokes) {
			session.OnInputChanged(edit)
		}

		select {
		case <-settled:
		case <-time.After(timeout):
			a.logger.Warn("no_results_received", slog.String("query", raw), slog.Duration("timeout", timeout))
			_, _ = fmt.Fprintf(out, "No results for %q within %s\n", raw, timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return scanner.Err()
}

// edits returns the successive values of a search box while raw is entered.
func edits(raw string, keystrokes bool) []string {
	if !keystrokes {
		return []string{raw}
	}

	runes := []rune(raw)
	out := make([]string, len(runes))
	for i := range runes {
		out[i] = string(runes[:i+1])
	}
	return out
}

// printer prints the results of the awaited query and ignores every other
// notification.
type printer struct {
	out      io.Writer
	r        *renderer
	minChars int

	mu      sync.Mutex
	want    query.SearchQuery
	settled chan struct{}
}

// expect sets the query whose results are printed next and returns a channel
// closed once they have been.
func (p *printer) expect(q query.SearchQuery) <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.want = q
	p.settled = make(chan struct{})
	return p.settled
}

// show is the session subscriber.
func (p *printer) show(q query.SearchQuery, results []khoj.LineRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.settled == nil || q != p.want {
		return
	}

	if results == nil {
		_, _ = fmt.Fprintf(p.out, "Type at least %d letters to search\n", p.minChars)
	} else {
		p.r.results(p.out, q, results)
	}

	close(p.settled)
	p.settled = nil
}
