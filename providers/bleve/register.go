package bleve

import (
	"fmt"

	"github.com/remiges-tech/khoj"
	"github.com/remiges-tech/khoj/providers"
)

// init registers the Bleve provider. Import this package with a blank identifier
// to use an embedded Bleve index as the lookup backend:
//
//	import _ "github.com/remiges-tech/khoj/providers/bleve"
//
//nolint:gochecknoinits // init() is the idiomatic pattern for provider registration
func init() {
	khoj.RegisterProvider("bleve", NewProvider)
}

// NewProvider creates a new Bleve provider from the given configuration.
// It implements ProviderFactory and expects config to be of type bleve.Config.
func NewProvider(config interface{}) (providers.Provider, error) {
	bleveConfig, ok := config.(Config)
	if !ok {
		return nil, fmt.Errorf("invalid configuration type for Bleve provider: expected bleve.Config, got %T", config)
	}

	return New(bleveConfig)
}
