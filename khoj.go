// Package khoj provides Gurmukhi line search with support for multiple storage
// backends, first-letter and full-word matching, and match highlighting.
//
// The package separates search logic from storage concerns through a provider interface,
// allowing different backends (SQLite, Redis, Elasticsearch, Bleve) to be used interchangeably.
// Providers self-register during package initialization.
//
// Basic usage:
//
//	import (
//		"github.com/remiges-tech/khoj"
//		"github.com/remiges-tech/khoj/providers/sqlite"
//		"github.com/remiges-tech/khoj/query"
//	)
//
//	config := khoj.NewConfig(sqlite.Config{Path: "khoj.db"})
//	searcher, err := khoj.New("sqlite", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer searcher.Close()
//
//	searcher.Index(ctx, khoj.LineRecord{ID: "1", Gurmukhi: "siq nwmu krqw purKu"})
//
//	// First letters of "siq nwmu"
//	lines, err := searcher.Search(ctx, query.Parse("sn"), khoj.DefaultSearchOptions())
package khoj

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/remiges-tech/khoj/providers"
	"github.com/remiges-tech/khoj/query"
)

// LineRecord is a line as stored and returned by providers.
type LineRecord = providers.LineRecord

// Section is the part of a source a line belongs to.
type Section = providers.Section

// DefaultLanguage is the transliteration and translation language used when
// a requested one is missing.
const DefaultLanguage = providers.DefaultLanguage

// Searcher defines the interface for line search.
// All methods are safe for concurrent use.
type Searcher interface {
	// Index adds or updates lines. A line with an existing ID is replaced.
	// Returns ErrEmptyID or ErrEmptyGurmukhi for incomplete lines, in which
	// case nothing is indexed.
	Index(ctx context.Context, records ...LineRecord) error

	// Search returns the lines matching q, ordered by ID.
	// Returns ErrQueryTooShort if the query value is shorter than
	// MinSearchChars, ErrLimitExceeded if the limit exceeds MaxLimit, or an
	// empty slice if no line matches.
	Search(ctx context.Context, q query.SearchQuery, options SearchOptions) ([]LineRecord, error)

	// Delete removes a line from the index.
	// Deleting a non-existent line returns nil (idempotent).
	// Returns ErrEmptyID if id is empty.
	Delete(ctx context.Context, id string) error

	// DeleteAll removes all lines from the index.
	// This operation is irreversible and only affects lines in the configured namespace.
	DeleteAll(ctx context.Context) error

	// MinSearchChars returns the shortest query value Search accepts.
	MinSearchChars() int

	// Close closes the provider and releases resources.
	// It is safe to call multiple times. After Close, other methods return ErrClosed.
	Close() error
}

// searcherImpl is the default implementation of Searcher.
type searcherImpl struct {
	provider providers.Provider
	options  Options
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Index adds or updates lines.
// See Searcher.Index for details.
func (s *searcherImpl) Index(ctx context.Context, records ...LineRecord) error {
	for _, rec := range records {
		if rec.ID == "" {
			return ErrEmptyID
		}
		if strings.TrimSpace(rec.Gurmukhi) == "" {
			return fmt.Errorf("%w: line %s", ErrEmptyGurmukhi, rec.ID)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.provider.Index(ctx, s.options.Namespace, records); err != nil {
		return fmt.Errorf("failed to index %d lines: %w", len(records), err)
	}
	s.logger.Debug("lines_indexed", slog.Int("count", len(records)))
	return nil
}

// Search returns the lines matching q.
// See Searcher.Search for details.
func (s *searcherImpl) Search(ctx context.Context, q query.SearchQuery, options SearchOptions) ([]LineRecord, error) {
	if !q.Dispatchable(s.options.MinSearchChars) {
		return nil, ErrQueryTooShort
	}

	limit := options.Limit
	if limit <= 0 {
		limit = s.options.MaxResults
	}
	if limit > s.options.MaxLimit {
		return nil, ErrLimitExceeded
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	queryOptions := providers.QueryOptions{
		MaxResults:              limit,
		IncludeTranslations:     options.IncludeTranslations,
		IncludeTransliterations: options.IncludeTransliterations,
		IncludeCitations:        options.IncludeCitations,
	}

	results, err := s.provider.Query(ctx, s.options.Namespace, q, queryOptions)
	if err != nil {
		return nil, fmt.Errorf("search %q failed: %w", q.String(), err)
	}
	return results, nil
}

// Delete removes a line from the index.
// See Searcher.Delete for details.
func (s *searcherImpl) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	return s.provider.Delete(ctx, s.options.Namespace, id)
}

// DeleteAll removes all lines from the index.
// See Searcher.DeleteAll for details.
func (s *searcherImpl) DeleteAll(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	return s.provider.DeleteAll(ctx, s.options.Namespace)
}

// MinSearchChars returns the shortest query value Search accepts.
func (s *searcherImpl) MinSearchChars() int {
	return s.options.MinSearchChars
}

// Close closes the provider and releases resources.
// See Searcher.Close for details.
func (s *searcherImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	return s.provider.Close()
}

// New creates a new Searcher with the specified provider.
// The providerType must be registered (case-insensitive). Config contains
// both provider-specific settings and common options; zero options take
// their defaults.
// Returns ErrProviderNotFound if the provider is not registered.
//
// Example:
//
//	import _ "github.com/remiges-tech/khoj/providers/redis"
//
//	config := khoj.NewConfig(redis.Config{Addr: "localhost:6379"})
//	searcher, err := khoj.New("redis", config)
//
//nolint:gocritic // hugeParam: New() is only called once at startup, making the copy negligible
func New(providerType string, config Config) (Searcher, error) {
	factory, exists := providerFactories[strings.ToLower(providerType)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerType)
	}

	provider, err := factory(config.ProviderConfig)
	if err != nil {
		return nil, err
	}

	return newSearcher(provider, config.Options), nil
}

// NewWithProvider creates a Searcher over an already constructed provider.
func NewWithProvider(provider providers.Provider, options Options) Searcher {
	return newSearcher(provider, options)
}

func newSearcher(provider providers.Provider, options Options) *searcherImpl {
	options = withDefaults(options)
	if options.CacheSize > 0 {
		provider = NewCachedProvider(provider, options.CacheSize)
	}

	return &searcherImpl{
		provider: provider,
		options:  options,
		logger:   options.Logger,
	}
}

// withDefaults fills zero options from DefaultOptions.
func withDefaults(options Options) Options {
	defaults := DefaultOptions()
	if options.MinSearchChars <= 0 {
		options.MinSearchChars = defaults.MinSearchChars
	}
	if options.MaxResults <= 0 {
		options.MaxResults = defaults.MaxResults
	}
	if options.MaxLimit <= 0 {
		options.MaxLimit = defaults.MaxLimit
	}
	if options.Namespace == "" {
		options.Namespace = defaults.Namespace
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return options
}

// ProviderFactory creates a Provider instance from a configuration.
// The factory must type-assert the config parameter to its expected type.
type ProviderFactory func(config interface{}) (providers.Provider, error)

// providerFactories holds the registered provider factories.
var providerFactories = make(map[string]ProviderFactory)

// RegisterProvider registers a new lookup provider factory.
// Typically called from a provider's init() function. The name is
// case-insensitive. Registering with an existing name overwrites it.
//
// Example:
//
//	package myprovider
//
//	func init() {
//	    khoj.RegisterProvider("myprovider", NewProvider)
//	}
//
// Not safe to call after init(): the registry has no mutex protection.
func RegisterProvider(name string, factory ProviderFactory) {
	providerFactories[strings.ToLower(name)] = factory
}

// Providers returns the sorted names of the registered providers.
func Providers() []string {
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
