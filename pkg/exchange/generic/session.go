// Package generic implements the library-backed adapter: a uniform wrapper
// around one authenticated or unauthenticated venue session that adds
// capability guards and the failure-recovery protocols for order placement
// and cancellation.
package generic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"xgate-api/pkg/exchange"
)

// Session is the raw surface of an underlying venue client. Implementations
// translate these calls to the venue's own transport and classify venue
// failures into the exchange package sentinels (ErrRequestTimeout,
// ErrOrderNotFound, ErrInvalidOrder); everything else passes through
// unchanged. Sessions perform no capability guarding and no retries of
// their own beyond transport concerns.
type Session interface {
	// ID returns the venue identifier, e.g. "binance".
	ID() string
	// Features reports the venue's capability table.
	Features() exchange.Features
	// Timeframes lists supported candle timeframes in the venue's preferred
	// order. An empty list means the venue exposes no explicit set.
	Timeframes() []string
	// FormatSymbol renders a unified symbol into the venue's own form.
	FormatSymbol(symbol exchange.Symbol) string

	// LoadMarkets fetches the venue's full market and currency catalogue,
	// keyed by unified symbol string and currency code respectively.
	LoadMarkets(ctx context.Context) (map[string]exchange.Market, map[string]exchange.Currency, error)

	FetchTicker(ctx context.Context, symbol string) (*exchange.Ticker, error)
	FetchCandles(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]exchange.Candle, error)
	FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Trade, error)
	FetchBook(ctx context.Context, symbol string, limit int) (*exchange.OrderBook, error)
	FetchWallet(ctx context.Context) (*exchange.Wallet, error)

	FetchOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error)
	FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error)
	FetchOrder(ctx context.Context, symbol, id string) (*exchange.Order, error)
	CreateOrder(ctx context.Context, symbol string, typ exchange.OrderType, side exchange.OrderSide, amount, price float64) (*exchange.Order, error)
	CancelOrder(ctx context.Context, symbol, id string) error

	// Close releases the venue connection.
	Close() error
}

// Dialer opens a fresh session against a venue.
type Dialer func(opts exchange.Options) (Session, error)

var (
	venueRegistry   = make(map[string]Dialer)
	venueRegistryMu sync.RWMutex
)

// RegisterVenue wires a venue into both the session registry and the
// exchange factory. Venue packages call it from init.
func RegisterVenue(name string, dialer Dialer) {
	name = strings.ToLower(strings.TrimSpace(name))

	venueRegistryMu.Lock()
	venueRegistry[name] = dialer
	venueRegistryMu.Unlock()

	exchange.Register(name, func(id string, opts exchange.Options) (exchange.Adapter, error) {
		session, err := dialer(opts)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", id, err)
		}
		return New(session, opts.Limits), nil
	})
}

// Dial opens a session for a registered venue.
func Dial(name string, opts exchange.Options) (Session, error) {
	venueRegistryMu.RLock()
	dialer, ok := venueRegistry[strings.ToLower(strings.TrimSpace(name))]
	venueRegistryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", exchange.ErrInvalidExchange, name)
	}
	return dialer(opts)
}

// Venues returns the registered venue identifiers, sorted.
func Venues() []string {
	venueRegistryMu.RLock()
	defer venueRegistryMu.RUnlock()
	names := make([]string, 0, len(venueRegistry))
	for name := range venueRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
