package khoj

import "log/slog"

// defaultMinSearchChars is the shortest query value worth dispatching.
const defaultMinSearchChars = 2

// defaultMaxResults is the default number of lines a search returns.
const defaultMaxResults = 20

// defaultMaxLimit is the maximum allowed results.
const defaultMaxLimit = 100

// Config holds configuration for the Searcher instance.
type Config struct {
	// ProviderConfig contains provider-specific configuration.
	// Each provider defines its own config struct type.
	ProviderConfig interface{}

	// Options contains common search behavior settings.
	Options Options
}

// Options contains common search behavior settings.
// Use DefaultOptions() for default values.
type Options struct {
	// MinSearchChars is the minimum query value length, in runes, that is
	// dispatched to the provider. Shorter queries yield no results.
	// Default: 2.
	MinSearchChars int

	// MaxResults is the number of lines returned when a search sets no limit.
	// Default: 20.
	MaxResults int

	// MaxLimit is the maximum number of results that can be requested.
	// Default: 100.
	MaxLimit int

	// Namespace prefixes all keys in the storage backend.
	// Enables multiple datasets to coexist (e.g., "sggs", "dasam").
	// Default: "khoj".
	Namespace string

	// CacheSize is the number of search results kept in an LRU cache in front
	// of the provider. Writes through the Searcher purge it.
	// Default: 0 (disabled).
	CacheSize int

	// Logger receives diagnostic logs.
	// Default: slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns default options.
func DefaultOptions() Options {
	return Options{
		MinSearchChars: defaultMinSearchChars,
		MaxResults:     defaultMaxResults,
		MaxLimit:       defaultMaxLimit,
		Namespace:      "khoj",
	}
}

// NewConfig creates a new configuration with default options.
func NewConfig(providerConfig interface{}) Config {
	return Config{
		ProviderConfig: providerConfig,
		Options:        DefaultOptions(),
	}
}

// NewConfigWithOptions creates a new configuration with custom options.
func NewConfigWithOptions(providerConfig interface{}, options Options) Config {
	return Config{
		ProviderConfig: providerConfig,
		Options:        options,
	}
}

// SearchOptions selects how many lines a search returns and which optional
// parts of each line are loaded.
type SearchOptions struct {
	// Limit caps the number of lines. Zero or negative selects Options.MaxResults.
	Limit int

	IncludeTranslations     bool
	IncludeTransliterations bool
	IncludeCitations        bool
}

// DefaultSearchOptions returns options that load every optional part of a line.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		IncludeTranslations:     true,
		IncludeTransliterations: true,
		IncludeCitations:        true,
	}
}
