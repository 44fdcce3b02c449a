package config

import (
	"fmt"
	"path/filepath"

	"xgate-api/pkg/confkit"
	"xgate-api/pkg/exchange"
)

// MustLoadExchange loads etc/exchange.yaml from the project root and panics
// on error. It isolates the venue config so tests that only need adapters
// skip the rest of the gateway configuration.
func MustLoadExchange() *exchange.Config {
	root := confkit.MustProjectRoot()
	path := filepath.Join(root, "etc", "exchange.yaml")
	cfg, err := exchange.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load exchange config %s: %w", path, err))
	}
	return cfg
}

// ExchangeConfig returns the hydrated venue section, or an empty config when
// the section was not provided.
func (c *Config) ExchangeConfig() *exchange.Config {
	if c.Exchange.Value != nil {
		return c.Exchange.Value
	}
	return &exchange.Config{}
}
