package parser

import (
	"fmt"
	"log"
	"time"

	"parcelscope/internal/config"
	"parcelscope/internal/port"
)

// ProviderFactory is a function that creates a DocumentParser from a provider config.
type ProviderFactory func(cfg *config.ParserProviderConfig) (port.DocumentParser, error)

// registry of parser provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a parser provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewParser creates a DocumentParser from a provider config using the registered factory.
func NewParser(cfg *config.ParserProviderConfig) (port.DocumentParser, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown parser provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewChain builds the model client used by the service: every configured
// provider wrapped in a RetryingParser, combined in a FallbackParser when
// more than one is configured. It returns the parser and the provider
// names in order.
func NewChain(cfg *config.ParserConfig) (port.DocumentParser, []string, error) {
	tiers := []*config.ParserProviderConfig{cfg.PrimaryConfig()}
	if s := cfg.SecondaryConfig(); s != nil {
		tiers = append(tiers, s)
	}
	if t := cfg.TertiaryConfig(); t != nil {
		tiers = append(tiers, t)
	}

	var (
		parsers []port.DocumentParser
		names   []string
	)
	for _, tier := range tiers {
		p, err := NewParser(tier)
		if err != nil {
			return nil, nil, err
		}
		name := tier.Provider
		if tier.DefaultModel != "" {
			name += "/" + tier.DefaultModel
		}
		parsers = append(parsers, NewRetryingParser(p, name, RetryConfig{
			MaxAttempts:    tier.MaxRetries,
			AttemptTimeout: time.Duration(tier.TimeoutSecs) * time.Second,
		}))
		names = append(names, name)
	}

	if len(parsers) == 1 {
		return parsers[0], names, nil
	}
	log.Printf("parser.NewChain: fallback order %v", names)
	return NewFallbackParser(parsers, names), names, nil
}
