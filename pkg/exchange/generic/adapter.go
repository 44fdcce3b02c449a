package generic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"xgate-api/pkg/exchange"
	"xgate-api/pkg/exchange/limits"
)

// cancelRetryBudget caps consecutive ambiguous cancel attempts per order id.
// One initial attempt plus this many retries bounds the pathological case at
// six outbound calls.
const cancelRetryBudget = 5

const defaultTimeframe = "1m"

// Adapter wraps one venue session with capability guards, the lazy market
// catalogue and the order-lifecycle recovery protocols. Instances are
// single-caller; the only state they carry is the catalogue cache and the
// per-order-id timeout counters, both scoped to the instance lifetime.
type Adapter struct {
	session Session
	limits  *limits.Limits
	clock   func() time.Time

	mu         sync.Mutex
	markets    map[string]exchange.Market
	currencies map[string]exchange.Currency
	loaded     bool

	// retries counts consecutive cancel timeouts per order id. A positive
	// count means an earlier cancel's network outcome is still unknown.
	retries map[string]int

	closeOnce sync.Once
	closeErr  error
}

// Option customises an Adapter.
type Option func(*Adapter)

// WithClock overrides the time source (primarily for testing).
func WithClock(clock func() time.Time) Option {
	return func(a *Adapter) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// New wraps a venue session. lim may be nil, meaning no known minimums.
func New(session Session, lim *limits.Limits, opts ...Option) *Adapter {
	a := &Adapter{
		session: session,
		limits:  lim,
		clock:   time.Now,
		retries: make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the venue identifier.
func (a *Adapter) Name() string {
	return a.session.ID()
}

// Features returns the venue capability table.
func (a *Adapter) Features() exchange.Features {
	return a.session.Features()
}

// guard fails fast with ErrInvalidOperation when the venue lacks the
// capability. It must run before any network I/O.
func (a *Adapter) guard(c exchange.Capability) error {
	if !a.session.Features().Has(c) {
		return fmt.Errorf("%w: %s: %s", exchange.ErrInvalidOperation, a.session.ID(), c)
	}
	return nil
}

// orderedPair is the venue-specific base/quote reordering hook. No venue in
// the current set swaps its pairs; the hook stays so a venue that does can
// plug in without touching callers.
func (a *Adapter) orderedPair(symbol exchange.Symbol) exchange.Symbol {
	return symbol
}

func (a *Adapter) venueSymbol(symbol exchange.Symbol) string {
	return a.session.FormatSymbol(a.orderedPair(symbol))
}

// loadMarkets populates the catalogue cache once per adapter lifetime.
// Repeated calls are no-ops against the network.
func (a *Adapter) loadMarkets(ctx context.Context) error {
	if err := a.guard(exchange.CapFetchMarkets); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded {
		return nil
	}
	markets, currencies, err := a.session.LoadMarkets(ctx)
	if err != nil {
		return err
	}
	a.markets = markets
	a.currencies = currencies
	a.loaded = true
	return nil
}

// Markets returns the venue's market catalogue, loading it on first use.
func (a *Adapter) Markets(ctx context.Context) (map[string]exchange.Market, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	return a.markets, nil
}

// Symbols lists the unified symbols of every listed market, sorted.
func (a *Adapter) Symbols(ctx context.Context) ([]string, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(a.markets))
	for symbol := range a.markets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Currencies returns the venue's currency catalogue.
func (a *Adapter) Currencies(ctx context.Context) (map[string]exchange.Currency, error) {
	if err := a.guard(exchange.CapFetchCurrencies); err != nil {
		return nil, err
	}
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	return a.currencies, nil
}

// Market returns one market record, ErrInvalidSymbol when the symbol is
// absent from the loaded catalogue.
func (a *Adapter) Market(ctx context.Context, symbol exchange.Symbol) (*exchange.Market, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	market, ok := a.markets[symbol.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", exchange.ErrInvalidSymbol, symbol)
	}
	return &market, nil
}

// Ticker fetches the venue's price summary for one symbol.
func (a *Adapter) Ticker(ctx context.Context, symbol exchange.Symbol) (*exchange.Ticker, error) {
	if err := a.guard(exchange.CapFetchTicker); err != nil {
		return nil, err
	}
	return a.session.FetchTicker(ctx, a.venueSymbol(symbol))
}

// Candles fetches OHLCV buckets. A timeframe the venue does not support is
// replaced by the venue's first supported timeframe; a venue with no
// explicit set falls back to "1m".
func (a *Adapter) Candles(ctx context.Context, symbol exchange.Symbol, timeframe string, since int64, limit int) ([]exchange.Candle, error) {
	if err := a.guard(exchange.CapFetchOHLCV); err != nil {
		return nil, err
	}
	timeframe = a.resolveTimeframe(timeframe)
	return a.session.FetchCandles(ctx, a.venueSymbol(symbol), timeframe, since, limit)
}

func (a *Adapter) resolveTimeframe(timeframe string) string {
	supported := a.session.Timeframes()
	if len(supported) == 0 {
		return defaultTimeframe
	}
	for _, tf := range supported {
		if tf == timeframe {
			return timeframe
		}
	}
	return supported[0]
}

// Trades fetches recent public executions for one symbol.
func (a *Adapter) Trades(ctx context.Context, symbol exchange.Symbol, since int64, limit int) ([]exchange.Trade, error) {
	if err := a.guard(exchange.CapFetchTrades); err != nil {
		return nil, err
	}
	return a.session.FetchTrades(ctx, a.venueSymbol(symbol), since, limit)
}

// Book fetches the order book in the venue's own level ordering.
func (a *Adapter) Book(ctx context.Context, symbol exchange.Symbol, limit int) (*exchange.OrderBook, error) {
	if err := a.guard(exchange.CapFetchOrderBook); err != nil {
		return nil, err
	}
	return a.session.FetchBook(ctx, a.venueSymbol(symbol), limit)
}

// Wallet fetches all account balances.
func (a *Adapter) Wallet(ctx context.Context) (*exchange.Wallet, error) {
	if err := a.guard(exchange.CapFetchBalance); err != nil {
		return nil, err
	}
	return a.session.FetchWallet(ctx)
}

// Balance returns one currency's balances. A currency absent from the
// venue's report yields a zero-filled balance, never an error.
func (a *Adapter) Balance(ctx context.Context, currency string) (*exchange.Balance, error) {
	if err := a.guard(exchange.CapFetchBalance); err != nil {
		return nil, err
	}
	wallet, err := a.session.FetchWallet(ctx)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	return &exchange.Balance{
		Free:  wallet.Free[code],
		Used:  wallet.Used[code],
		Total: wallet.Total[code],
	}, nil
}

// Orders lists the account's orders for one symbol, routed by status. An
// unset status requires the venue's general order listing capability.
func (a *Adapter) Orders(ctx context.Context, symbol exchange.Symbol, status exchange.OrderStatus, since int64, limit int) ([]exchange.Order, error) {
	venueSymbol := a.venueSymbol(symbol)
	switch status {
	case exchange.OrderStatusOpen:
		if err := a.guard(exchange.CapFetchOpenOrders); err != nil {
			return nil, err
		}
		return a.session.FetchOpenOrders(ctx, venueSymbol, since, limit)
	case exchange.OrderStatusClosed:
		if err := a.guard(exchange.CapFetchClosedOrders); err != nil {
			return nil, err
		}
		return a.session.FetchClosedOrders(ctx, venueSymbol, since, limit)
	default:
		if err := a.guard(exchange.CapFetchOrders); err != nil {
			return nil, err
		}
		return a.session.FetchOrders(ctx, venueSymbol, since, limit)
	}
}

// Order fetches one order by id.
func (a *Adapter) Order(ctx context.Context, symbol exchange.Symbol, id string) (*exchange.Order, error) {
	if err := a.guard(exchange.CapFetchOrder); err != nil {
		return nil, err
	}
	return a.session.FetchOrder(ctx, a.venueSymbol(symbol), id)
}

// CreateOrder places an order and resolves the two recoverable failure
// modes locally.
//
// A request timeout leaves placement ambiguous: when the venue can list
// open orders, the adapter re-reads orders placed at or after the request
// timestamp and accepts one matching (side, type, amount) as the lost
// confirmation. This is at-least-once placement with a reconciliation
// read, not a guarantee against duplicates.
//
// An invalid-order rejection of a limit order is checked against the
// venue's known minimum notional and re-classified as MinOrderAmountError
// when amount*price sits at or below it.
func (a *Adapter) CreateOrder(ctx context.Context, symbol exchange.Symbol, typ exchange.OrderType, side exchange.OrderSide, amount, price float64) (*exchange.Order, error) {
	if err := a.guard(exchange.CapCreateOrder); err != nil {
		return nil, err
	}

	venueSymbol := a.venueSymbol(symbol)
	placedAt := a.clock().UnixMilli()

	order, err := a.session.CreateOrder(ctx, venueSymbol, typ, side, amount, price)
	if err == nil {
		return order, nil
	}

	switch {
	case errors.Is(err, exchange.ErrRequestTimeout):
		if !a.session.Features().Has(exchange.CapFetchOpenOrders) {
			return nil, err
		}
		open, ferr := a.session.FetchOpenOrders(ctx, venueSymbol, placedAt, 0)
		if ferr != nil {
			logx.WithContext(ctx).Errorf("%s: create reconciliation read failed: %v", a.session.ID(), ferr)
			return nil, err
		}
		for i := range open {
			candidate := &open[i]
			if candidate.Side == side && candidate.Type == typ && candidate.Amount == amount {
				logx.WithContext(ctx).Infof("%s: create timeout reconciled to order %s", a.session.ID(), candidate.ID)
				return candidate, nil
			}
		}
		return nil, err

	case errors.Is(err, exchange.ErrInvalidOrder) && typ == exchange.OrderTypeLimit:
		min := a.limits.Fetch(a.session.ID())
		if min >= amount*price {
			return nil, &exchange.MinOrderAmountError{
				Exchange: a.session.ID(),
				Minimum:  min,
				Reason:   err.Error(),
			}
		}
		return nil, err

	default:
		return nil, err
	}
}

// CancelOrder cancels an order with the idempotent-cancellation protocol.
// Cancellation against an unreliable venue is not idempotent by default: a
// timed-out cancel may have succeeded silently, and a later not-found is
// the only observable signal. The per-id counter records how many
// consecutive attempts ended in that unknown state; a not-found while the
// counter is positive therefore resolves to success. Exhausting the retry
// budget converts the timeout into a fatal, caller-visible failure.
func (a *Adapter) CancelOrder(ctx context.Context, symbol exchange.Symbol, id string) error {
	if err := a.guard(exchange.CapCancelOrder); err != nil {
		return err
	}

	venueSymbol := a.venueSymbol(symbol)
	for {
		err := a.session.CancelOrder(ctx, venueSymbol, id)
		switch {
		case err == nil:
			delete(a.retries, id)
			return nil

		case errors.Is(err, exchange.ErrOrderNotFound):
			if a.retries[id] == 0 {
				return err
			}
			// The earlier timed-out cancel went through; refresh the order
			// state when the venue allows it.
			if a.session.Features().Has(exchange.CapFetchOrder) {
				if _, ferr := a.session.FetchOrder(ctx, venueSymbol, id); ferr != nil {
					logx.WithContext(ctx).Errorf("%s: order %s refresh after cancel: %v", a.session.ID(), id, ferr)
				}
			}
			a.retries[id] = 0
			return nil

		case errors.Is(err, exchange.ErrRequestTimeout):
			a.retries[id]++
			if a.retries[id] > cancelRetryBudget {
				a.retries[id] = 0
				return err
			}
			// Outcome stays ambiguous until a later not-found or success
			// resolves it.

		default:
			return err
		}
	}
}

// Close releases the venue session. Safe to call more than once; only the
// first call reaches the session.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.session.Close()
	})
	return a.closeErr
}
