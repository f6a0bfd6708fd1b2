package sqlite

import (
	"fmt"

	"github.com/remiges-tech/khoj"
	"github.com/remiges-tech/khoj/providers"
)

// init registers the SQLite provider. Import this package with a blank identifier
// to use SQLite as the lookup backend:
//
//	import _ "github.com/remiges-tech/khoj/providers/sqlite"
//
//nolint:gochecknoinits // init() is the idiomatic pattern for provider registration
func init() {
	khoj.RegisterProvider("sqlite", NewProvider)
}

// NewProvider creates a new SQLite provider from the given configuration.
// It implements ProviderFactory and expects config to be of type sqlite.Config.
func NewProvider(config interface{}) (providers.Provider, error) {
	sqliteConfig, ok := config.(Config)
	if !ok {
		return nil, fmt.Errorf("invalid configuration type for SQLite provider: expected sqlite.Config, got %T", config)
	}

	return New(sqliteConfig)
}
