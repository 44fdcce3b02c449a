package exchange

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"xgate-api/pkg/exchange/limits"
)

// defaultRequestTimeout bounds every outbound call an adapter issues.
// Cancellation of in-flight requests is owned by the transport; the
// adapter-level retry protocols react to it.
const defaultRequestTimeout = 30 * time.Second

// Options carries everything a backend needs to construct an adapter.
type Options struct {
	Credentials Credentials
	Timeout     time.Duration
	Limits      *limits.Limits
}

// Builder constructs an adapter for one exchange identifier.
type Builder func(name string, opts Options) (Adapter, error)

var (
	builderRegistry   = make(map[string]Builder)
	builderRegistryMu sync.RWMutex
)

// Register associates a builder with an exchange identifier. Backend
// packages call it from init; callers import them blank to populate the
// factory.
func Register(name string, builder Builder) {
	builderRegistryMu.Lock()
	defer builderRegistryMu.Unlock()
	builderRegistry[strings.ToLower(strings.TrimSpace(name))] = builder
}

func lookupBuilder(name string) (Builder, bool) {
	builderRegistryMu.RLock()
	defer builderRegistryMu.RUnlock()
	builder, ok := builderRegistry[strings.ToLower(strings.TrimSpace(name))]
	return builder, ok
}

// Known returns every registered exchange identifier, sorted.
func Known() []string {
	builderRegistryMu.RLock()
	defer builderRegistryMu.RUnlock()
	names := make([]string, 0, len(builderRegistry))
	for name := range builderRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadOption tweaks adapter construction.
type LoadOption func(*Options)

// WithTimeout overrides the per-adapter request timeout.
func WithTimeout(d time.Duration) LoadOption {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithLimits overrides the shared minimum-order-amount cache, primarily for
// tests.
func WithLimits(l *limits.Limits) LoadOption {
	return func(o *Options) {
		if l != nil {
			o.Limits = l
		}
	}
}

// Load resolves an exchange identifier to a fresh adapter instance. The
// shared limits cache is injected into every construction; an unknown
// identifier fails with ErrInvalidExchange.
func Load(name string, creds Credentials, opts ...LoadOption) (Adapter, error) {
	builder, ok := lookupBuilder(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExchange, name)
	}

	options := Options{
		Credentials: creds,
		Timeout:     defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Limits == nil {
		options.Limits = limits.Shared()
	}
	return builder(strings.ToLower(strings.TrimSpace(name)), options)
}

// List opens every known exchange in turn, yields it to fn and closes it
// again regardless of fn's outcome. A non-nil fn error stops the walk.
func List(ctx context.Context, fn func(name string, adapter Adapter) error) error {
	for _, name := range Known() {
		if err := ctx.Err(); err != nil {
			return err
		}
		adapter, err := Load(name, Credentials{})
		if err != nil {
			return err
		}
		err = fn(name, adapter)
		if cerr := adapter.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
