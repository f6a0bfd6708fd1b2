// Package bleve implements the lookup Provider interface on an embedded Bleve index.
// Match columns are indexed whole with the keyword analyzer so a wildcard query
// sees the entire projection or plain text of a line.
package bleve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/remiges-tech/khoj/providers"
	"github.com/remiges-tech/khoj/query"
)

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("bleve provider is closed")

// Config holds Bleve index settings.
type Config struct {
	// Path is the index directory. Empty selects an in-memory index.
	Path string
}

// Provider implements the lookup Provider interface using Bleve.
// All methods are safe for concurrent use.
type Provider struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// document is the structure indexed for each line.
type document struct {
	Key           string `json:"key"`
	FirstLetters  string `json:"first_letters"`
	GurmukhiPlain string `json:"gurmukhi_plain"`
	Record        string `json:"record"`
}

// New opens the index at config.Path, creating it if it does not exist.
func New(config Config) (*Provider, error) {
	indexMapping := createIndexMapping()

	var (
		idx bleve.Index
		err error
	)
	if config.Path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(config.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		idx, err = bleve.Open(config.Path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			slog.Debug("bleve_index_created", slog.String("path", config.Path))
			idx, err = bleve.New(config.Path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &Provider{index: idx}, nil
}

// createIndexMapping indexes the match columns as single keyword terms and
// stores the record without indexing it.
func createIndexMapping() *mapping.IndexMappingImpl {
	keywordField := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.IncludeInAll = false
		return fm
	}

	recordField := bleve.NewTextFieldMapping()
	recordField.Index = false
	recordField.Store = true
	recordField.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("key", keywordField())
	docMapping.AddFieldMappingsAt("first_letters", keywordField())
	docMapping.AddFieldMappingsAt("gurmukhi_plain", keywordField())
	docMapping.AddFieldMappingsAt("record", recordField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = keyword.Name

	return indexMapping
}

// Index adds or replaces lines in one batch.
func (p *Provider) Index(ctx context.Context, key string, records []providers.LineRecord) error {
	if len(records) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	batch := p.index.NewBatch()
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal line %s: %w", rec.ID, err)
		}
		doc := document{
			Key:           key,
			FirstLetters:  rec.Letters(),
			GurmukhiPlain: rec.Plain(),
			Record:        string(data),
		}
		if err := batch.Index(generateDocumentID(key, rec.ID), doc); err != nil {
			return fmt.Errorf("failed to index line %s: %w", rec.ID, err)
		}
	}

	if err := p.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Query runs q as a wildcard query over the field its mode is indexed under
// and verifies the hits.
func (p *Provider) Query(ctx context.Context, key string, q query.SearchQuery, options providers.QueryOptions) ([]providers.LineRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	field, pattern, exact, ok := wildcardFor(q)
	if !ok || options.MaxResults <= 0 {
		return []providers.LineRecord{}, nil
	}

	keyQuery := bleve.NewTermQuery(key)
	keyQuery.SetField("key")
	matchQuery := bleve.NewWildcardQuery(pattern)
	matchQuery.SetField(field)

	size := options.MaxResults
	if !exact {
		count, err := p.index.DocCount()
		if err != nil {
			return nil, fmt.Errorf("failed to count documents: %w", err)
		}
		size = int(count)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(keyQuery, matchQuery), size, 0, false)
	req.Fields = []string{"record"}
	req.SortBy([]string{"_id"})

	result, err := p.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	candidates := make([]providers.LineRecord, 0, len(result.Hits))
	for _, hit := range result.Hits {
		data, ok := hit.Fields["record"].(string)
		if !ok {
			continue
		}
		var rec providers.LineRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode line %s: %w", hit.ID, err)
		}
		candidates = append(candidates, rec)
	}

	return providers.Collect(candidates, q, options), nil
}

// wildcardFor returns the field and wildcard pattern that select the lines q
// matches. Bleve wildcards cannot be escaped, so a literal '*' or '?' is
// widened to '?' and exact is false: the hits are then a superset to verify.
func wildcardFor(q query.SearchQuery) (field, pattern string, exact, ok bool) {
	var value string
	switch q.Mode {
	case query.FullWord:
		field = "gurmukhi_plain"
		value = strings.TrimSpace(q.Value)
	default:
		field = "first_letters"
		value = query.CompilePattern(q.Value).String()
	}
	if value == "" {
		return "", "", false, false
	}

	exact = true
	var b strings.Builder
	b.WriteByte('*')
	for _, r := range value {
		switch {
		case q.Mode == query.FirstLetter && r == query.WildcardMarker:
			b.WriteByte('?')
		case r == '*' || r == '?':
			b.WriteByte('?')
			exact = false
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('*')

	return field, b.String(), exact, true
}

// Delete removes a line from the index.
func (p *Provider) Delete(ctx context.Context, key, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	if err := p.index.Delete(generateDocumentID(key, id)); err != nil {
		return fmt.Errorf("failed to delete line %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes all lines for a given key namespace.
func (p *Provider) DeleteAll(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	count, err := p.index.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return nil
	}

	keyQuery := bleve.NewTermQuery(key)
	keyQuery.SetField("key")
	req := bleve.NewSearchRequestOptions(keyQuery, int(count), 0, false)
	req.Fields = []string{}

	result, err := p.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to find lines: %w", err)
	}

	batch := p.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := p.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete lines: %w", err)
	}
	return nil
}

// Close closes the index. It is safe to call multiple times.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.index.Close()
}

// generateDocumentID creates a unique document ID from key and id.
func generateDocumentID(key, id string) string {
	return fmt.Sprintf("%s:%s", key, id)
}
