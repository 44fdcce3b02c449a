// Package binance binds the Binance spot REST API to the generic venue
// session contract.
package binance

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"xgate-api/pkg/exchange"
	"xgate-api/pkg/exchange/generic"
)

const venueID = "binance"

func init() {
	generic.RegisterVenue(venueID, func(opts exchange.Options) (generic.Session, error) {
		sessionOpts := []Option{}
		if opts.Timeout > 0 {
			sessionOpts = append(sessionOpts, WithTimeout(opts.Timeout))
		}
		return New(opts.Credentials, sessionOpts...)
	})
}

var timeframes = []string{
	"1m", "3m", "5m", "15m", "30m",
	"1h", "2h", "4h", "6h", "8h", "12h",
	"1d", "3d", "1w", "1M",
}

var features = exchange.Features{
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

// pairFilters caches per-pair formatting rules extracted from exchangeInfo.
type pairFilters struct {
	amountPrecision int
	pricePrecision  int
	limits          exchange.MarketLimits
}

// Session talks to the Binance spot API. Safe for concurrent use.
type Session struct {
	client *client

	mu      sync.Mutex
	filters map[string]pairFilters
}

// Option customises the Binance session.
type Option func(*Session)

// WithBaseURL overrides the API endpoint (primarily for testing).
func WithBaseURL(baseURL string) Option {
	return func(s *Session) {
		if baseURL != "" {
			s.client.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Session) {
		if httpClient != nil {
			s.client.httpClient = httpClient
		}
	}
}

// WithTimeout overrides the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.client.httpClient.Timeout = d
		}
	}
}

// WithClock overrides the time source used for request timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.client.clock = clock
		}
	}
}

// New builds a Binance session. Credentials may be empty for public
// market-data use; private calls then fail at the venue.
func New(creds exchange.Credentials, opts ...Option) (*Session, error) {
	s := &Session{
		client:  newClient(creds.APIKey, creds.Secret),
		filters: make(map[string]pairFilters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) ID() string { return venueID }

func (s *Session) Features() exchange.Features { return features.Clone() }

func (s *Session) Timeframes() []string {
	out := make([]string, len(timeframes))
	copy(out, timeframes)
	return out
}

// FormatSymbol renders BTC/USDT as BTCUSDT.
func (s *Session) FormatSymbol(symbol exchange.Symbol) string {
	return symbol.Base + symbol.Quote
}

func (s *Session) Close() error { return nil }

func (s *Session) LoadMarkets(ctx context.Context) (map[string]exchange.Market, map[string]exchange.Currency, error) {
	var info exchangeInfoResponse
	if err := s.client.get(ctx, "/api/v3/exchangeInfo", nil, authNone, &info); err != nil {
		return nil, nil, err
	}

	markets := make(map[string]exchange.Market, len(info.Symbols))
	currencies := make(map[string]exchange.Currency)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range info.Symbols {
		filters := extractFilters(sym)
		s.filters[sym.Symbol] = filters

		unified := sym.BaseAsset + "/" + sym.QuoteAsset
		markets[unified] = exchange.Market{
			ID:     sym.Symbol,
			Symbol: unified,
			Base:   sym.BaseAsset,
			Quote:  sym.QuoteAsset,
			Active: sym.Status == "TRADING",
			Precision: exchange.MarketPrecision{
				Price:  filters.pricePrecision,
				Amount: filters.amountPrecision,
				Cost:   sym.QuotePrecision,
			},
			Limits: filters.limits,
		}
		if _, ok := currencies[sym.BaseAsset]; !ok {
			currencies[sym.BaseAsset] = exchange.Currency{
				ID:        sym.BaseAsset,
				Code:      sym.BaseAsset,
				Precision: sym.BaseAssetPrecision,
			}
		}
		if _, ok := currencies[sym.QuoteAsset]; !ok {
			currencies[sym.QuoteAsset] = exchange.Currency{
				ID:        sym.QuoteAsset,
				Code:      sym.QuoteAsset,
				Precision: sym.QuotePrecision,
			}
		}
	}
	return markets, currencies, nil
}

func extractFilters(sym symbolInfo) pairFilters {
	out := pairFilters{amountPrecision: 8, pricePrecision: 8}
	for _, f := range sym.Filters {
		switch f.FilterType {
		case "PRICE_FILTER":
			out.pricePrecision = stepPrecision(f.TickSize)
			out.limits.Price = exchange.Limit{Min: parseFloat(f.MinPrice), Max: parseFloat(f.MaxPrice)}
		case "LOT_SIZE":
			out.amountPrecision = stepPrecision(f.StepSize)
			out.limits.Amount = exchange.Limit{Min: parseFloat(f.MinQty), Max: parseFloat(f.MaxQty)}
		case "NOTIONAL", "MIN_NOTIONAL":
			out.limits.Cost = exchange.Limit{Min: parseFloat(f.MinNotional), Max: parseFloat(f.MaxNotional)}
		}
	}
	return out
}

// stepPrecision derives decimal places from a filter step such as
// "0.00100000" (3) or "1.00000000" (0).
func stepPrecision(step string) int {
	d, err := decimal.NewFromString(step)
	if err != nil || d.IsZero() {
		return 0
	}
	s := d.String()
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	return len(s) - dot - 1
}

func (s *Session) pairFilters(ctx context.Context, venueSymbol string) (pairFilters, error) {
	s.mu.Lock()
	filters, ok := s.filters[venueSymbol]
	s.mu.Unlock()
	if ok {
		return filters, nil
	}
	if _, _, err := s.LoadMarkets(ctx); err != nil {
		return pairFilters{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters[venueSymbol], nil
}

func (s *Session) FetchTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var resp ticker24hrResponse
	if err := s.client.get(ctx, "/api/v3/ticker/24hr", params, authNone, &resp); err != nil {
		return nil, err
	}
	return &exchange.Ticker{
		Symbol:      symbol,
		Timestamp:   resp.CloseTime,
		Bid:         parseFloat(resp.BidPrice),
		BidVolume:   parseFloat(resp.BidQty),
		Ask:         parseFloat(resp.AskPrice),
		AskVolume:   parseFloat(resp.AskQty),
		Last:        parseFloat(resp.LastPrice),
		BaseVolume:  parseFloat(resp.Volume),
		QuoteVolume: parseFloat(resp.QuoteVolume),
	}, nil
}

func (s *Session) FetchCandles(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]exchange.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", timeframe)
	if since > 0 {
		params.Set("startTime", strconv.FormatInt(since, 10))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var rows []klineRow
	if err := s.client.get(ctx, "/api/v3/klines", params, authNone, &rows); err != nil {
		return nil, err
	}
	candles := make([]exchange.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, exchange.Candle{
			Timestamp: row.int64(0),
			Open:      row.float(1),
			High:      row.float(2),
			Low:       row.float(3),
			Close:     row.float(4),
			Volume:    row.float(5),
		})
	}
	return candles, nil
}

func (s *Session) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Trade, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp []tradeResponse
	if err := s.client.get(ctx, "/api/v3/trades", params, authNone, &resp); err != nil {
		return nil, err
	}
	trades := make([]exchange.Trade, 0, len(resp))
	for _, t := range resp {
		if since > 0 && t.Time < since {
			continue
		}
		side := exchange.OrderSideBuy
		if t.IsBuyerMaker {
			side = exchange.OrderSideSell
		}
		trades = append(trades, exchange.Trade{
			ID:        strconv.FormatInt(t.ID, 10),
			Timestamp: t.Time,
			Side:      side,
			Price:     parseFloat(t.Price),
			Amount:    parseFloat(t.Qty),
		})
	}
	return trades, nil
}

func (s *Session) FetchBook(ctx context.Context, symbol string, limit int) (*exchange.OrderBook, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp depthResponse
	if err := s.client.get(ctx, "/api/v3/depth", params, authNone, &resp); err != nil {
		return nil, err
	}
	return &exchange.OrderBook{
		Bids: parseBookSide(resp.Bids),
		Asks: parseBookSide(resp.Asks),
	}, nil
}

func parseBookSide(levels [][]string) []exchange.Offer {
	offers := make([]exchange.Offer, 0, len(levels))
	for _, level := range levels {
		if len(level) < 2 {
			continue
		}
		offers = append(offers, exchange.Offer{
			Price:  parseFloat(level[0]),
			Amount: parseFloat(level[1]),
		})
	}
	return offers
}

func (s *Session) FetchWallet(ctx context.Context) (*exchange.Wallet, error) {
	var resp accountResponse
	if err := s.client.get(ctx, "/api/v3/account", nil, authSigned, &resp); err != nil {
		return nil, err
	}
	wallet := &exchange.Wallet{
		Free:  make(map[string]float64),
		Used:  make(map[string]float64),
		Total: make(map[string]float64),
	}
	for _, b := range resp.Balances {
		free := parseFloat(b.Free)
		locked := parseFloat(b.Locked)
		if free == 0 && locked == 0 {
			continue
		}
		wallet.Free[b.Asset] = free
		wallet.Used[b.Asset] = locked
		wallet.Total[b.Asset] = free + locked
	}
	return wallet, nil
}

func (s *Session) FetchOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if since > 0 {
		params.Set("startTime", strconv.FormatInt(since, 10))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp []orderResponse
	if err := s.client.get(ctx, "/api/v3/allOrders", params, authSigned, &resp); err != nil {
		return nil, err
	}
	return mapOrders(resp, exchange.OrderStatusAny, 0), nil
}

func (s *Session) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var resp []orderResponse
	if err := s.client.get(ctx, "/api/v3/openOrders", params, authSigned, &resp); err != nil {
		return nil, err
	}
	orders := mapOrders(resp, exchange.OrderStatusAny, since)
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Session) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if since > 0 {
		params.Set("startTime", strconv.FormatInt(since, 10))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp []orderResponse
	if err := s.client.get(ctx, "/api/v3/allOrders", params, authSigned, &resp); err != nil {
		return nil, err
	}
	return mapOrders(resp, exchange.OrderStatusClosed, 0), nil
}

func (s *Session) FetchOrder(ctx context.Context, symbol, id string) (*exchange.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", id)
	var resp orderResponse
	if err := s.client.get(ctx, "/api/v3/order", params, authSigned, &resp); err != nil {
		return nil, err
	}
	order := mapOrder(resp)
	return &order, nil
}

func (s *Session) CreateOrder(ctx context.Context, symbol string, typ exchange.OrderType, side exchange.OrderSide, amount, price float64) (*exchange.Order, error) {
	filters, err := s.pairFilters(ctx, symbol)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", strings.ToUpper(string(side)))
	params.Set("type", strings.ToUpper(string(typ)))
	params.Set("quantity", formatStep(amount, filters.amountPrecision))
	if typ == exchange.OrderTypeLimit {
		params.Set("timeInForce", "GTC")
		params.Set("price", formatStep(price, filters.pricePrecision))
	}

	var resp orderResponse
	if err := s.client.do(ctx, http.MethodPost, "/api/v3/order", params, authSigned, &resp); err != nil {
		return nil, err
	}
	order := mapOrder(resp)
	return &order, nil
}

func (s *Session) CancelOrder(ctx context.Context, symbol, id string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", id)
	return s.client.do(ctx, http.MethodDelete, "/api/v3/order", params, authSigned, nil)
}

// formatStep truncates toward zero so the venue never rejects for
// oversized quantity.
func formatStep(v float64, precision int) string {
	return decimal.NewFromFloat(v).Truncate(int32(precision)).String()
}

func mapOrders(resp []orderResponse, want exchange.OrderStatus, since int64) []exchange.Order {
	orders := make([]exchange.Order, 0, len(resp))
	for _, r := range resp {
		order := mapOrder(r)
		if want != exchange.OrderStatusAny && order.Status != want {
			continue
		}
		if since > 0 && order.Timestamp < since {
			continue
		}
		orders = append(orders, order)
	}
	return orders
}

func mapOrder(r orderResponse) exchange.Order {
	amount := parseFloat(r.OrigQty)
	filled := parseFloat(r.ExecutedQty)
	timestamp := r.Time
	if timestamp == 0 {
		timestamp = r.TransactTime
	}
	return exchange.Order{
		ID:        strconv.FormatInt(r.OrderID, 10),
		Timestamp: timestamp,
		LastTrade: r.UpdateTime,
		Status:    mapStatus(r.Status),
		Symbol:    r.Symbol,
		Type:      exchange.OrderType(strings.ToLower(r.Type)),
		Side:      exchange.OrderSide(strings.ToLower(r.Side)),
		Price:     parseFloat(r.Price),
		Amount:    amount,
		Filled:    filled,
		Remaining: amount - filled,
		Cost:      parseFloat(r.CumulativeQuoteQty),
	}
}

func mapStatus(status string) exchange.OrderStatus {
	switch status {
	case "NEW", "PARTIALLY_FILLED", "PENDING_NEW":
		return exchange.OrderStatusOpen
	case "FILLED":
		return exchange.OrderStatusClosed
	case "CANCELED", "PENDING_CANCEL", "EXPIRED", "REJECTED":
		return exchange.OrderStatusCanceled
	}
	return exchange.OrderStatusAny
}
