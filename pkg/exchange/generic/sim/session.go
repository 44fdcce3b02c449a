// Package sim is an in-memory paper venue. It backs the "sim" exchange
// identifier so the gateway always has one venue that needs no network and
// no credentials: listings, candles, books and the full order lifecycle are
// served from deterministic local state.
package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"xgate-api/pkg/exchange"
	"xgate-api/pkg/exchange/generic"
)

const (
	// minNotional rejects dust orders the way real venues do, which keeps
	// the invalid-order classification reachable without a live venue.
	minNotional = 10.0

	defaultQuoteBalance = 100000.0
	defaultCandleLimit  = 100
)

func init() {
	generic.RegisterVenue("sim", func(opts exchange.Options) (generic.Session, error) {
		return New(), nil
	})
}

var timeframes = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}

var timeframeDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

type listing struct {
	base  string
	quote string
	price float64
}

var defaultListings = []listing{
	{"BTC", "USDT", 65000},
	{"ETH", "USDT", 3200},
	{"SOL", "USDT", 150},
	{"ETH", "BTC", 0.049},
}

// Session keeps all venue state in-memory under one mutex.
type Session struct {
	mu sync.Mutex

	clock func() time.Time

	markets    map[string]exchange.Market
	currencies map[string]exchange.Currency
	last       map[string]float64

	free map[string]float64
	used map[string]float64

	orders map[string]*exchange.Order
	nextID int64

	closed bool
}

// Option customises the simulator.
type Option func(*Session)

// WithClock overrides the time source (primarily for testing).
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a simulator with the default listings and a seeded wallet.
func New(opts ...Option) *Session {
	s := &Session{
		clock:      time.Now,
		markets:    make(map[string]exchange.Market),
		currencies: make(map[string]exchange.Currency),
		last:       make(map[string]float64),
		free:       map[string]float64{"USDT": defaultQuoteBalance, "BTC": 1},
		used:       make(map[string]float64),
		orders:     make(map[string]*exchange.Order),
		nextID:     1,
	}
	for _, l := range defaultListings {
		s.list(l.base, l.quote, l.price)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) list(base, quote string, price float64) {
	symbol := base + "/" + quote
	s.markets[symbol] = exchange.Market{
		ID:     base + quote,
		Symbol: symbol,
		Base:   base,
		Quote:  quote,
		Active: true,
		Precision: exchange.MarketPrecision{
			Price:  2,
			Amount: 6,
			Cost:   8,
		},
		Limits: exchange.MarketLimits{
			Amount: exchange.Limit{Min: 1e-6},
			Cost:   exchange.Limit{Min: minNotional},
		},
	}
	s.last[symbol] = price
	for _, code := range []string{base, quote} {
		if _, ok := s.currencies[code]; !ok {
			s.currencies[code] = exchange.Currency{ID: strings.ToLower(code), Code: code, Precision: 8}
		}
	}
}

// ID implements generic.Session.
func (s *Session) ID() string { return "sim" }

// Features implements generic.Session. The simulator supports the full
// fetch-and-trade surface except transfers.
func (s *Session) Features() exchange.Features {
	return exchange.Features{
		exchange.CapFetchMarkets:      true,
		exchange.CapFetchCurrencies:   true,
		exchange.CapFetchTicker:       true,
		exchange.CapFetchOHLCV:        true,
		exchange.CapFetchTrades:       true,
		exchange.CapFetchOrderBook:    true,
		exchange.CapFetchBalance:      true,
		exchange.CapFetchOrders:       true,
		exchange.CapFetchOpenOrders:   true,
		exchange.CapFetchClosedOrders: true,
		exchange.CapFetchOrder:        true,
		exchange.CapCreateOrder:       true,
		exchange.CapCancelOrder:       true,
		exchange.CapDeposit:           false,
		exchange.CapWithdraw:          false,
	}
}

// Timeframes implements generic.Session.
func (s *Session) Timeframes() []string { return timeframes }

// FormatSymbol implements generic.Session. The simulator trades unified
// symbols directly.
func (s *Session) FormatSymbol(symbol exchange.Symbol) string { return symbol.String() }

// LoadMarkets implements generic.Session.
func (s *Session) LoadMarkets(ctx context.Context) (map[string]exchange.Market, map[string]exchange.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	markets := make(map[string]exchange.Market, len(s.markets))
	for k, v := range s.markets {
		markets[k] = v
	}
	currencies := make(map[string]exchange.Currency, len(s.currencies))
	for k, v := range s.currencies {
		currencies[k] = v
	}
	return markets, currencies, nil
}

// SetLastPrice updates the reference price used for tickers, candles and
// market-order fills.
func (s *Session) SetLastPrice(symbol string, price float64) error {
	if price <= 0 {
		return fmt.Errorf("sim: price must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[symbol]; !ok {
		return fmt.Errorf("%w: %s", exchange.ErrInvalidSymbol, symbol)
	}
	s.last[symbol] = price
	return nil
}

func (s *Session) lastPriceLocked(symbol string) (float64, error) {
	price, ok := s.last[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", exchange.ErrInvalidSymbol, symbol)
	}
	return price, nil
}

// FetchTicker implements generic.Session.
func (s *Session) FetchTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price, err := s.lastPriceLocked(symbol)
	if err != nil {
		return nil, err
	}
	return &exchange.Ticker{
		Symbol:      symbol,
		Timestamp:   s.clock().UnixMilli(),
		Bid:         round8(price * 0.9995),
		Ask:         round8(price * 1.0005),
		Last:        price,
		BaseVolume:  1000,
		QuoteVolume: round8(1000 * price),
	}, nil
}

// FetchCandles implements generic.Session. Buckets are aligned to the
// timeframe and carry a deterministic oscillation around the last price so
// downstream consumers see non-degenerate series.
func (s *Session) FetchCandles(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]exchange.Candle, error) {
	step, ok := timeframeDurations[timeframe]
	if !ok {
		step = time.Minute
	}
	s.mu.Lock()
	price, err := s.lastPriceLocked(symbol)
	now := s.clock()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultCandleLimit
	}
	stepMs := step.Milliseconds()
	end := now.UnixMilli() / stepMs * stepMs
	start := end - int64(limit-1)*stepMs
	if since > 0 && since > start {
		start = (since + stepMs - 1) / stepMs * stepMs
	}

	var candles []exchange.Candle
	for t := start; t <= end; t += stepMs {
		wave := math.Sin(float64(t/stepMs)) * price * 0.001
		open := round8(price + wave)
		close := round8(price - wave)
		candles = append(candles, exchange.Candle{
			Timestamp: t,
			Open:      open,
			High:      round8(math.Max(open, close) * 1.0005),
			Low:       round8(math.Min(open, close) * 0.9995),
			Close:     close,
			Volume:    round8(100 + math.Abs(wave)),
		})
	}
	return candles, nil
}

// FetchTrades implements generic.Session.
func (s *Session) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Trade, error) {
	s.mu.Lock()
	price, err := s.lastPriceLocked(symbol)
	now := s.clock()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	trades := make([]exchange.Trade, 0, limit)
	base := now.UnixMilli() - int64(limit)*1000
	for i := 0; i < limit; i++ {
		ts := base + int64(i)*1000
		if since > 0 && ts < since {
			continue
		}
		side := exchange.OrderSideBuy
		if i%2 == 1 {
			side = exchange.OrderSideSell
		}
		trades = append(trades, exchange.Trade{
			ID:        strconv.FormatInt(ts, 10),
			Timestamp: ts,
			Side:      side,
			Price:     round8(price * (1 + float64(i%5-2)*0.0001)),
			Amount:    0.1,
		})
	}
	return trades, nil
}

// FetchBook implements generic.Session. Bids descend, asks ascend.
func (s *Session) FetchBook(ctx context.Context, symbol string, limit int) (*exchange.OrderBook, error) {
	s.mu.Lock()
	price, err := s.lastPriceLocked(symbol)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	book := &exchange.OrderBook{}
	for i := 1; i <= limit; i++ {
		offset := price * 0.0005 * float64(i)
		book.Bids = append(book.Bids, exchange.Offer{Price: round8(price - offset), Amount: float64(i)})
		book.Asks = append(book.Asks, exchange.Offer{Price: round8(price + offset), Amount: float64(i)})
	}
	return book, nil
}

// FetchWallet implements generic.Session.
func (s *Session) FetchWallet(ctx context.Context) (*exchange.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wallet := &exchange.Wallet{
		Free:  make(map[string]float64, len(s.free)),
		Used:  make(map[string]float64, len(s.used)),
		Total: make(map[string]float64, len(s.free)),
	}
	for code, v := range s.free {
		wallet.Free[code] = v
		wallet.Total[code] = v
	}
	for code, v := range s.used {
		wallet.Used[code] = v
		wallet.Total[code] += v
	}
	return wallet, nil
}

func (s *Session) filterOrdersLocked(symbol string, keep func(*exchange.Order) bool, since int64, limit int) []exchange.Order {
	var out []exchange.Order
	for _, order := range s.orders {
		if order.Symbol != symbol || !keep(order) {
			continue
		}
		if since > 0 && order.Timestamp < since {
			continue
		}
		out = append(out, *order)
	}
	sortOrders(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FetchOrders implements generic.Session.
func (s *Session) FetchOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterOrdersLocked(symbol, func(*exchange.Order) bool { return true }, since, limit), nil
}

// FetchOpenOrders implements generic.Session.
func (s *Session) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterOrdersLocked(symbol, func(o *exchange.Order) bool {
		return o.Status == exchange.OrderStatusOpen
	}, since, limit), nil
}

// FetchClosedOrders implements generic.Session.
func (s *Session) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterOrdersLocked(symbol, func(o *exchange.Order) bool {
		return o.Status != exchange.OrderStatusOpen
	}, since, limit), nil
}

// FetchOrder implements generic.Session.
func (s *Session) FetchOrder(ctx context.Context, symbol, id string) (*exchange.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.Symbol != symbol {
		return nil, fmt.Errorf("%w: %s", exchange.ErrOrderNotFound, id)
	}
	copied := *order
	return &copied, nil
}

// CreateOrder implements generic.Session. Market orders fill immediately at
// the last price; limit orders rest on the book until canceled.
func (s *Session) CreateOrder(ctx context.Context, symbol string, typ exchange.OrderType, side exchange.OrderSide, amount, price float64) (*exchange.Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", exchange.ErrInvalidOrder)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	last, err := s.lastPriceLocked(symbol)
	if err != nil {
		return nil, err
	}

	execPrice := price
	if typ == exchange.OrderTypeMarket || execPrice <= 0 {
		execPrice = last
	}
	if amount*execPrice < minNotional {
		return nil, fmt.Errorf("%w: notional %.8f below venue minimum %.2f",
			exchange.ErrInvalidOrder, amount*execPrice, minNotional)
	}

	order := &exchange.Order{
		ID:        strconv.FormatInt(s.nextID, 10),
		Timestamp: s.clock().UnixMilli(),
		Symbol:    symbol,
		Type:      typ,
		Side:      side,
		Price:     execPrice,
		Amount:    amount,
		Remaining: amount,
		Status:    exchange.OrderStatusOpen,
	}
	s.nextID++

	if typ == exchange.OrderTypeMarket {
		s.fillLocked(order, last)
	}

	s.orders[order.ID] = order
	copied := *order
	return &copied, nil
}

func (s *Session) fillLocked(order *exchange.Order, price float64) {
	order.Status = exchange.OrderStatusClosed
	order.Filled = order.Amount
	order.Remaining = 0
	order.Cost = round8(order.Amount * price)
	order.LastTrade = order.Timestamp

	base, quote, ok := strings.Cut(order.Symbol, "/")
	if !ok {
		return
	}
	if order.Side == exchange.OrderSideBuy {
		s.free[quote] -= order.Cost
		s.free[base] += order.Amount
	} else {
		s.free[base] -= order.Amount
		s.free[quote] += order.Cost
	}
}

// CancelOrder implements generic.Session.
func (s *Session) CancelOrder(ctx context.Context, symbol, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.Symbol != symbol || order.Status != exchange.OrderStatusOpen {
		return fmt.Errorf("%w: %s", exchange.ErrOrderNotFound, id)
	}
	order.Status = exchange.OrderStatusCanceled
	order.Remaining = 0
	return nil
}

// Close implements generic.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

func sortOrders(orders []exchange.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].Timestamp != orders[j].Timestamp {
			return orders[i].Timestamp < orders[j].Timestamp
		}
		return orders[i].ID < orders[j].ID
	})
}
