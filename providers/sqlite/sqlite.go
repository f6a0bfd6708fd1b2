// Package sqlite implements the lookup Provider interface on a SQLite database.
// Lines are stored with their first-letter projection and vishraam-free text;
// both match modes become a single GLOB over an indexed column, and the
// optional translations, transliterations and sections are loaded only when a
// query asks for them.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/remiges-tech/khoj/providers"
	"github.com/remiges-tech/khoj/query"
)

const memoryDSN = ":memory:"

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("sqlite provider is closed")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS lines (
		ns             TEXT NOT NULL,
		id             TEXT NOT NULL,
		shabad_id      TEXT NOT NULL DEFAULT '',
		source_id      TEXT NOT NULL DEFAULT '',
		source_page    INTEGER NOT NULL DEFAULT 0,
		gurmukhi       TEXT NOT NULL,
		first_letters  TEXT NOT NULL,
		gurmukhi_plain TEXT NOT NULL,
		writer         TEXT NOT NULL DEFAULT '',
		section_id     INTEGER,
		PRIMARY KEY (ns, id)
	)`,
	`CREATE INDEX IF NOT EXISTS lines_first_letters ON lines (ns, first_letters)`,
	`CREATE TABLE IF NOT EXISTS sections (
		ns            TEXT NOT NULL,
		id            INTEGER NOT NULL,
		name_english  TEXT NOT NULL DEFAULT '',
		name_gurmukhi TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (ns, id)
	)`,
	`CREATE TABLE IF NOT EXISTS transliterations (
		ns       TEXT NOT NULL,
		line_id  TEXT NOT NULL,
		language TEXT NOT NULL,
		text     TEXT NOT NULL,
		PRIMARY KEY (ns, line_id, language)
	)`,
	`CREATE TABLE IF NOT EXISTS translations (
		ns       TEXT NOT NULL,
		line_id  TEXT NOT NULL,
		language TEXT NOT NULL,
		text     TEXT NOT NULL,
		PRIMARY KEY (ns, line_id, language)
	)`,
}

// textTables hold per-language text for a line.
var textTables = []string{"transliterations", "translations"}

// Config holds SQLite settings.
type Config struct {
	// Path is the database file. Empty selects an in-memory database.
	Path string
}

// Provider implements the lookup Provider interface using SQLite.
// All methods are safe for concurrent use.
type Provider struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// New opens the database at config.Path, creating it and its schema if needed.
func New(config Config) (*Provider, error) {
	dsn := memoryDSN
	if config.Path != "" {
		dir := filepath.Dir(config.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = config.Path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dsn == memoryDSN {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if dsn != memoryDSN {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, stmt := range append(pragmas, schema...) {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialise database: %w", err)
		}
	}

	slog.Debug("sqlite_provider_opened", slog.String("dsn", dsn))

	return &Provider{db: db}, nil
}

// Index adds or replaces lines in a single transaction.
func (p *Provider) Index(ctx context.Context, key string, records []providers.LineRecord) error {
	if len(records) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range records {
		if err := indexRecord(ctx, tx, key, rec); err != nil {
			return fmt.Errorf("failed to index line %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lines: %w", err)
	}
	return nil
}

func indexRecord(ctx context.Context, tx *sql.Tx, key string, rec providers.LineRecord) error {
	if err := deleteRecord(ctx, tx, key, rec.ID); err != nil {
		return err
	}

	var sectionID sql.NullInt64
	if rec.Section != nil {
		sectionID = sql.NullInt64{Int64: int64(rec.Section.ID), Valid: true}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO sections (ns, id, name_english, name_gurmukhi) VALUES (?, ?, ?, ?)`,
			key, rec.Section.ID, rec.Section.NameEnglish, rec.Section.NameGurmukhi)
		if err != nil {
			return err
		}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO lines (ns, id, shabad_id, source_id, source_page, gurmukhi, first_letters, gurmukhi_plain, writer, section_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, rec.ID, rec.ShabadID, rec.SourceID, rec.SourcePage, rec.Gurmukhi,
		rec.Letters(), rec.Plain(), rec.Writer, sectionID)
	if err != nil {
		return err
	}

	texts := map[string]map[string]string{
		"transliterations": rec.Transliterations,
		"translations":     rec.Translations,
	}
	for _, table := range textTables {
		for lang, text := range texts[table] {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO `+table+` (ns, line_id, language, text) VALUES (?, ?, ?, ?)`,
				key, rec.ID, lang, text)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Query runs q as a GLOB over the column its mode is indexed under, then loads
// the optional parts the options ask for.
func (p *Provider) Query(ctx context.Context, key string, q query.SearchQuery, options providers.QueryOptions) ([]providers.LineRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	column, pattern, ok := globFor(q)
	if !ok || options.MaxResults <= 0 {
		return []providers.LineRecord{}, nil
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT l.id, l.shabad_id, l.source_id, l.source_page, l.gurmukhi, l.writer,
		        s.id, s.name_english, s.name_gurmukhi
		   FROM lines l
		   LEFT JOIN sections s ON s.ns = l.ns AND s.id = l.section_id
		  WHERE l.ns = ? AND l.`+column+` GLOB ?
		  ORDER BY l.id
		  LIMIT ?`,
		key, pattern, options.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	records := make([]providers.LineRecord, 0, options.MaxResults)
	for rows.Next() {
		var (
			rec                       providers.LineRecord
			sectionID                 sql.NullInt64
			sectionEnglish, sectionGu sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.ShabadID, &rec.SourceID, &rec.SourcePage, &rec.Gurmukhi, &rec.Writer,
			&sectionID, &sectionEnglish, &sectionGu); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		if sectionID.Valid {
			rec.Section = &providers.Section{
				ID:           int(sectionID.Int64),
				NameEnglish:  sectionEnglish.String,
				NameGurmukhi: sectionGu.String,
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lines: %w", err)
	}

	if err := p.loadTexts(ctx, key, records, options); err != nil {
		return nil, err
	}

	for i := range records {
		records[i] = options.Shape(records[i])
	}
	return records, nil
}

// loadTexts fills in transliterations and translations concurrently.
func (p *Provider) loadTexts(ctx context.Context, key string, records []providers.LineRecord, options providers.QueryOptions) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	var transliterations, translations map[string]map[string]string

	g, gctx := errgroup.WithContext(ctx)
	if options.IncludeTransliterations {
		g.Go(func() error {
			var err error
			transliterations, err = p.texts(gctx, "transliterations", key, ids)
			return err
		})
	}
	if options.IncludeTranslations {
		g.Go(func() error {
			var err error
			translations, err = p.texts(gctx, "translations", key, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range records {
		records[i].Transliterations = transliterations[records[i].ID]
		records[i].Translations = translations[records[i].ID]
	}
	return nil
}

// texts returns line ID → language → text from one of textTables.
func (p *Provider) texts(ctx context.Context, table, key string, ids []string) (map[string]map[string]string, error) {
	args := make([]any, 0, len(ids)+1)
	args = append(args, key)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := p.db.QueryContext(ctx,
		`SELECT line_id, language, text FROM `+table+` WHERE ns = ? AND line_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	result := make(map[string]map[string]string)
	for rows.Next() {
		var id, lang, text string
		if err := rows.Scan(&id, &lang, &text); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		if result[id] == nil {
			result[id] = make(map[string]string)
		}
		result[id][lang] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return result, nil
}

// Delete removes a line and its texts.
func (p *Provider) Delete(ctx context.Context, key, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteRecord(ctx, tx, key, id); err != nil {
		return fmt.Errorf("failed to delete line %s: %w", id, err)
	}
	return tx.Commit()
}

func deleteRecord(ctx context.Context, tx *sql.Tx, key, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM lines WHERE ns = ? AND id = ?`, key, id); err != nil {
		return err
	}
	for _, table := range textTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE ns = ? AND line_id = ?`, key, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll removes every line, section and text in the namespace.
func (p *Provider) DeleteAll(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range append([]string{"lines", "sections"}, textTables...) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE ns = ?`, key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Close closes the database. It is safe to call multiple times.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

// globFor returns the column and GLOB pattern that select the lines q matches.
// GLOB is case-sensitive, which the ASCII encoding needs: "s" and "S" are
// different letters.
func globFor(q query.SearchQuery) (column, pattern string, ok bool) {
	switch q.Mode {
	case query.FullWord:
		needle := strings.TrimSpace(q.Value)
		if needle == "" {
			return "", "", false
		}
		return "gurmukhi_plain", "*" + escapeGlob(needle) + "*", true
	default:
		compiled := query.CompilePattern(q.Value)
		if compiled.Len() == 0 {
			return "", "", false
		}
		var b strings.Builder
		b.WriteByte('*')
		for _, r := range compiled.String() {
			if r == query.WildcardMarker {
				b.WriteByte('?')
				continue
			}
			b.WriteString(escapeGlob(string(r)))
		}
		b.WriteByte('*')
		return "first_letters", b.String(), true
	}
}

// escapeGlob quotes the GLOB metacharacters in s.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
