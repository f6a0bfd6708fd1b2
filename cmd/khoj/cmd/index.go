package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiges-tech/khoj"
)

const (
	defaultBatchSize = 500

	// maxLineBytes bounds one JSON record; a line with many translations can
	// exceed bufio's default token size.
	maxLineBytes = 1 << 20
)

func newIndexCmd(a *app) *cobra.Command {
	var (
		batchSize int
		replace   bool
	)

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Index lines from a JSON lines file",
		Long: `Index lines from a file holding one JSON object per line, or from
standard input when file is "-".

Each object is a line record:
  {"id": "1", "gurmukhi": "ijin syivAw iqin pwieAw mwnu ]",
   "transliterations": {"english": "jin sevi-aa tin paa-i-aa maan ||"},
   "translations": {"english": "Those who serve Him are honored."},
   "writer": "Guru Nanak Dev Ji", "source_page": 2,
   "section": {"id": 1, "name_english": "Jap Ji Sahib"}}

A record with an existing ID replaces it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, a, args[0], batchSize, replace)
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", defaultBatchSize, "Lines per index call")
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete every line in the namespace first")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, a *app, path string, batchSize int, replace bool) error {
	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	s, err := a.openSearcher()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if replace {
		if err := s.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear namespace: %w", err)
		}
		a.logger.Info("namespace_cleared", slog.String("namespace", a.cfg.Search.Namespace))
	}

	total, err := readLines(in, batchSize, func(batch []khoj.LineRecord) error {
		return s.Index(ctx, batch...)
	})
	if err != nil {
		return err
	}

	a.logger.Info("index_complete", slog.Int("lines", total))
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d lines\n", total)
	return nil
}

// readLines decodes one line record per input line and hands them to fn in
// batches of batchSize. Blank lines are skipped. It returns the number of
// records passed to fn.
func readLines(r io.Reader, batchSize int, fn func([]khoj.LineRecord) error) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		batch  = make([]khoj.LineRecord, 0, batchSize)
		total  int
		lineNo int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec khoj.LineRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return total, fmt.Errorf("line %d: invalid record: %w", lineNo, err)
		}
		batch = append(batch, rec)

		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("failed to read input: %w", err)
	}

	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
