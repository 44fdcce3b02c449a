package exchange

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Credentials is the credential bundle an adapter is constructed with.
// APIKey and Secret cover the common venues; anything venue-specific lands
// in Extra under a lower-cased key.
type Credentials struct {
	APIKey string            `yaml:"api_key"`
	Secret string            `yaml:"secret"`
	Extra  map[string]string `yaml:"extra"`
}

// IsZero reports whether no credential material is present.
func (c Credentials) IsZero() bool {
	return c.APIKey == "" && c.Secret == "" && len(c.Extra) == 0
}

func (c *Credentials) expandEnv() {
	c.APIKey = strings.TrimSpace(os.ExpandEnv(c.APIKey))
	c.Secret = strings.TrimSpace(os.ExpandEnv(c.Secret))
	for k, v := range c.Extra {
		c.Extra[k] = strings.TrimSpace(os.ExpandEnv(v))
	}
}

// Config captures static gateway configuration for one or more venues.
// Venue keys are exchange identifiers as understood by the factory.
type Config struct {
	Default string                  `yaml:"default"`
	Venues  map[string]*VenueConfig `yaml:"venues"`
}

// VenueConfig holds construction parameters for one venue's adapters.
type VenueConfig struct {
	Credentials Credentials `yaml:",inline"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// LoadConfig reads venue configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exchange config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read exchange config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal exchange config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Venues == nil {
		c.Venues = make(map[string]*VenueConfig)
	}
	for name, venue := range c.Venues {
		if venue == nil {
			venue = &VenueConfig{}
			c.Venues[name] = venue
		}
		venue.Credentials.expandEnv()
		if err := venue.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (v *VenueConfig) parseDurations(name string) error {
	raw := strings.TrimSpace(os.ExpandEnv(v.TimeoutRaw))
	if raw == "" {
		v.Timeout = 0
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("exchange venue %s: invalid timeout %q: %w", name, raw, err)
	}
	if d <= 0 {
		return fmt.Errorf("exchange venue %s: timeout must be positive, got %s", name, d)
	}
	v.Timeout = d
	return nil
}

// Validate ensures all venues reference known exchange identifiers.
func (c *Config) Validate() error {
	if c.Default != "" {
		if _, ok := c.Venues[c.Default]; !ok {
			return fmt.Errorf("exchange config: default venue %q not defined", c.Default)
		}
	}
	for name := range c.Venues {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("exchange config: venue name cannot be empty")
		}
		if _, ok := lookupBuilder(name); !ok {
			return fmt.Errorf("exchange config: venue %s: %w", name, ErrInvalidExchange)
		}
	}
	return nil
}

// CredentialsFor returns the configured credentials and timeout for a venue,
// zero values when the venue is not configured.
func (c *Config) CredentialsFor(name string) (Credentials, time.Duration) {
	if c == nil || c.Venues == nil {
		return Credentials{}, 0
	}
	venue, ok := c.Venues[strings.ToLower(strings.TrimSpace(name))]
	if !ok || venue == nil {
		return Credentials{}, 0
	}
	return venue.Credentials, venue.Timeout
}

// Open builds an adapter for the named venue using the configured
// credentials and timeout. An empty name resolves to the default venue.
func (c *Config) Open(name string, opts ...LoadOption) (Adapter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" && c != nil {
		name = c.Default
	}
	if name == "" {
		return nil, fmt.Errorf("%w: no venue named and no default configured", ErrInvalidExchange)
	}
	creds, timeout := c.CredentialsFor(name)
	if timeout > 0 {
		opts = append([]LoadOption{WithTimeout(timeout)}, opts...)
	}
	return Load(name, creds, opts...)
}
