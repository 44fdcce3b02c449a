// Package hyperliquid binds the Hyperliquid perpetuals API to the generic
// venue session contract. Markets are quoted in USDC and orders are signed
// EIP-712 actions submitted with the account's private key.
package hyperliquid

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"xgate-api/pkg/exchange"
	"xgate-api/pkg/exchange/generic"
)

const (
	venueID       = "hyperliquid"
	quoteCurrency = "USDC"

	priceSigFigs     = 5
	priceMaxDecimals = 6

	// marketSlippage pads the aggressive limit price used to emulate a
	// market order via an IOC limit.
	marketSlippage = 0.05
)

func init() {
	generic.RegisterVenue(venueID, func(opts exchange.Options) (generic.Session, error) {
		sessionOpts := []Option{}
		if opts.Timeout > 0 {
			sessionOpts = append(sessionOpts, WithTimeout(opts.Timeout))
		}
		return New(opts.Credentials, sessionOpts...)
	})
}

var timeframeDurations = map[string]time.Duration{
	"1m": time.Minute, "3m": 3 * time.Minute, "5m": 5 * time.Minute,
	"15m": 15 * time.Minute, "30m": 30 * time.Minute,
	"1h": time.Hour, "2h": 2 * time.Hour, "4h": 4 * time.Hour,
	"8h": 8 * time.Hour, "12h": 12 * time.Hour,
	"1d": 24 * time.Hour, "3d": 72 * time.Hour,
	"1w": 7 * 24 * time.Hour, "1M": 30 * 24 * time.Hour,
}

var timeframes = []string{
	"1m", "3m", "5m", "15m", "30m",
	"1h", "2h", "4h", "8h", "12h",
	"1d", "3d", "1w", "1M",
}

var features = exchange.Features{
	exchange.CapFetchMarkets:      true,
	exchange.CapFetchCurrencies:   true,
	exchange.CapFetchTicker:       true,
	exchange.CapFetchOHLCV:        true,
	exchange.CapFetchTrades:       false,
	exchange.CapFetchOrderBook:    true,
	exchange.CapFetchBalance:      true,
	exchange.CapFetchOrders:       false,
	exchange.CapFetchOpenOrders:   true,
	exchange.CapFetchClosedOrders: false,
	exchange.CapFetchOrder:        true,
	exchange.CapCreateOrder:       true,
	exchange.CapCancelOrder:       true,
	exchange.CapDeposit:           false,
	exchange.CapWithdraw:          false,
}

type assetMeta struct {
	index      int
	szDecimals int
}

// Session talks to the Hyperliquid API. Safe for concurrent use.
type Session struct {
	client  *client
	address string

	mu     sync.Mutex
	assets map[string]assetMeta
}

// Option customises the Hyperliquid session.
type Option func(*Session)

// WithBaseURLs overrides the info and exchange endpoints (primarily for
// testing).
func WithBaseURLs(infoURL, exchangeURL string) Option {
	return func(s *Session) {
		if infoURL != "" {
			s.client.infoURL = infoURL
		}
		if exchangeURL != "" {
			s.client.exchangeURL = exchangeURL
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

// WithClock overrides the time source used for nonces (primarily for
// testing).
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.client.clock = clock
		}
	}
}

// WithTestnet points the session at the testnet endpoints and switches the
// signing domain accordingly.
func WithTestnet() Option {
	return func(s *Session) {
		s.client.isMainnet = false
		s.client.infoURL = testnetInfoURL
		s.client.exchangeURL = testnetExchangeURL
	}
}

// New builds a Hyperliquid session. Credentials.Secret holds the account
// private key; when empty the session serves public market data only and
// Extra["wallet_address"] may supply an address for read-only account
// queries.
func New(creds exchange.Credentials, opts ...Option) (*Session, error) {
	s := &Session{
		client: &client{
			infoURL:     mainnetInfoURL,
			exchangeURL: mainnetExchangeURL,
			httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
			isMainnet:   true,
			clock:       time.Now,
		},
		assets: make(map[string]assetMeta),
	}
	if creds.Secret != "" {
		signer, err := NewPrivateKeySigner(creds.Secret)
		if err != nil {
			return nil, err
		}
		s.client.signer = signer
		s.address = signer.Address()
	}
	if addr := creds.Extra["wallet_address"]; addr != "" {
		s.address = strings.ToLower(addr)
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

// FormatSymbol renders BTC/USDC as the bare coin name the venue uses.
func (s *Session) FormatSymbol(symbol exchange.Symbol) string {
	return symbol.Base
}

func (s *Session) Close() error { return nil }

func (s *Session) LoadMarkets(ctx context.Context) (map[string]exchange.Market, map[string]exchange.Currency, error) {
	var meta metaResponse
	if err := s.client.doInfo(ctx, infoRequest{Type: "meta"}, &meta); err != nil {
		return nil, nil, err
	}

	markets := make(map[string]exchange.Market, len(meta.Universe))
	currencies := map[string]exchange.Currency{
		quoteCurrency: {ID: quoteCurrency, Code: quoteCurrency, Precision: 2},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx, entry := range meta.Universe {
		coin := strings.ToUpper(entry.Name)
		s.assets[coin] = assetMeta{index: idx, szDecimals: entry.SzDecimals}

		unified := coin + "/" + quoteCurrency
		markets[unified] = exchange.Market{
			ID:     entry.Name,
			Symbol: unified,
			Base:   coin,
			Quote:  quoteCurrency,
			Active: !entry.IsDelisted,
			Precision: exchange.MarketPrecision{
				Price:  priceMaxDecimals - entry.SzDecimals,
				Amount: entry.SzDecimals,
				Cost:   2,
			},
		}
		if _, ok := currencies[coin]; !ok {
			currencies[coin] = exchange.Currency{ID: entry.Name, Code: coin, Precision: entry.SzDecimals}
		}
	}
	return markets, currencies, nil
}

func (s *Session) assetFor(ctx context.Context, coin string) (assetMeta, error) {
	coin = strings.ToUpper(coin)
	s.mu.Lock()
	meta, ok := s.assets[coin]
	s.mu.Unlock()
	if ok {
		return meta, nil
	}
	if _, _, err := s.LoadMarkets(ctx); err != nil {
		return assetMeta{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok = s.assets[coin]
	if !ok {
		return assetMeta{}, fmt.Errorf("%w: unknown asset %s", exchange.ErrInvalidSymbol, coin)
	}
	return meta, nil
}

func (s *Session) midPrice(ctx context.Context, coin string) (float64, error) {
	var mids map[string]string
	if err := s.client.doInfo(ctx, infoRequest{Type: "allMids"}, &mids); err != nil {
		return 0, err
	}
	raw, ok := mids[coin]
	if !ok {
		return 0, fmt.Errorf("%w: no mid price for %s", exchange.ErrInvalidSymbol, coin)
	}
	mid, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("hyperliquid: parse mid %q: %w", raw, err)
	}
	return mid, nil
}

func (s *Session) FetchTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	mid, err := s.midPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &exchange.Ticker{
		Symbol:    symbol,
		Timestamp: s.client.clock().UnixMilli(),
		Bid:       mid,
		Ask:       mid,
		Last:      mid,
	}, nil
}

func (s *Session) FetchCandles(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]exchange.Candle, error) {
	interval, ok := timeframeDurations[timeframe]
	if !ok {
		interval = time.Minute
	}
	end := s.client.clock().UnixMilli()
	start := since
	if start <= 0 {
		n := limit
		if n <= 0 {
			n = 500
		}
		start = end - int64(n)*interval.Milliseconds()
	}
	var rows []candleRow
	req := infoRequest{
		Type: "candleSnapshot",
		Req:  &candleRequest{Coin: symbol, Interval: timeframe, StartTime: start, EndTime: end},
	}
	if err := s.client.doInfo(ctx, req, &rows); err != nil {
		return nil, err
	}
	candles := make([]exchange.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, exchange.Candle{
			Timestamp: row.OpenTime,
			Open:      parseFloat(row.Open),
			High:      parseFloat(row.High),
			Low:       parseFloat(row.Low),
			Close:     parseFloat(row.Close),
			Volume:    parseFloat(row.Volume),
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func (s *Session) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Trade, error) {
	return nil, fmt.Errorf("%w: %s: fetchTrades", exchange.ErrInvalidOperation, venueID)
}

func (s *Session) FetchBook(ctx context.Context, symbol string, limit int) (*exchange.OrderBook, error) {
	var resp l2BookResponse
	if err := s.client.doInfo(ctx, infoRequest{Type: "l2Book", Coin: symbol}, &resp); err != nil {
		return nil, err
	}
	book := &exchange.OrderBook{}
	if len(resp.Levels) > 0 {
		book.Bids = mapLevels(resp.Levels[0], limit)
	}
	if len(resp.Levels) > 1 {
		book.Asks = mapLevels(resp.Levels[1], limit)
	}
	return book, nil
}

func mapLevels(levels []bookLevel, limit int) []exchange.Offer {
	if limit > 0 && len(levels) > limit {
		levels = levels[:limit]
	}
	offers := make([]exchange.Offer, 0, len(levels))
	for _, l := range levels {
		offers = append(offers, exchange.Offer{Price: parseFloat(l.Px), Amount: parseFloat(l.Sz)})
	}
	return offers
}

func (s *Session) FetchWallet(ctx context.Context) (*exchange.Wallet, error) {
	if s.address == "" {
		return nil, fmt.Errorf("hyperliquid: wallet address unavailable")
	}
	var state clearinghouseState
	if err := s.client.doInfo(ctx, infoRequest{Type: "clearinghouseState", User: s.address}, &state); err != nil {
		return nil, err
	}
	total := parseFloat(state.MarginSummary.AccountValue)
	used := parseFloat(state.MarginSummary.TotalMarginUsed)
	free := parseFloat(state.Withdrawable)
	return &exchange.Wallet{
		Free:  map[string]float64{quoteCurrency: free},
		Used:  map[string]float64{quoteCurrency: used},
		Total: map[string]float64{quoteCurrency: total},
	}, nil
}

func (s *Session) FetchOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error) {
	return nil, fmt.Errorf("%w: %s: fetchOrders", exchange.ErrInvalidOperation, venueID)
}

func (s *Session) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error) {
	if s.address == "" {
		return nil, fmt.Errorf("hyperliquid: wallet address unavailable")
	}
	var raw []wireOrder
	if err := s.client.doInfo(ctx, infoRequest{Type: "frontendOpenOrders", User: s.address}, &raw); err != nil {
		return nil, err
	}
	orders := make([]exchange.Order, 0, len(raw))
	for _, w := range raw {
		if symbol != "" && !strings.EqualFold(w.Coin, symbol) {
			continue
		}
		if since > 0 && w.Timestamp < since {
			continue
		}
		orders = append(orders, mapWireOrder(w, exchange.OrderStatusOpen))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Timestamp < orders[j].Timestamp })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Session) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]exchange.Order, error) {
	return nil, fmt.Errorf("%w: %s: fetchClosedOrders", exchange.ErrInvalidOperation, venueID)
}

func (s *Session) FetchOrder(ctx context.Context, symbol, id string) (*exchange.Order, error) {
	if s.address == "" {
		return nil, fmt.Errorf("hyperliquid: wallet address unavailable")
	}
	oid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad order id %q", exchange.ErrOrderNotFound, id)
	}
	var resp orderStatusResponse
	if err := s.client.doInfo(ctx, infoRequest{Type: "orderStatus", User: s.address, Oid: oid}, &resp); err != nil {
		return nil, err
	}
	if strings.ToLower(resp.Status) != "order" {
		return nil, fmt.Errorf("%w: oid %s", exchange.ErrOrderNotFound, id)
	}
	order := mapWireOrder(resp.Order.Order, mapOrderState(resp.Order.Status))
	return &order, nil
}

func mapOrderState(state string) exchange.OrderStatus {
	switch strings.ToLower(state) {
	case "open":
		return exchange.OrderStatusOpen
	case "filled":
		return exchange.OrderStatusClosed
	case "canceled", "margincanceled", "rejected", "reduceonlycanceled":
		return exchange.OrderStatusCanceled
	}
	return exchange.OrderStatusAny
}

func mapWireOrder(w wireOrder, status exchange.OrderStatus) exchange.Order {
	amount := parseFloat(w.OrigSz)
	remaining := parseFloat(w.Sz)
	side := exchange.OrderSideBuy
	if strings.EqualFold(w.Side, "A") || strings.EqualFold(w.Side, "sell") {
		side = exchange.OrderSideSell
	}
	return exchange.Order{
		ID:        strconv.FormatInt(w.Oid, 10),
		Timestamp: w.Timestamp,
		Status:    status,
		Symbol:    strings.ToUpper(w.Coin),
		Type:      exchange.OrderTypeLimit,
		Side:      side,
		Price:     parseFloat(w.LimitPx),
		Amount:    amount,
		Filled:    amount - remaining,
		Remaining: remaining,
	}
}

func (s *Session) CreateOrder(ctx context.Context, symbol string, typ exchange.OrderType, side exchange.OrderSide, amount, price float64) (*exchange.Order, error) {
	meta, err := s.assetFor(ctx, symbol)
	if err != nil {
		return nil, err
	}

	tif := "Gtc"
	limitPx := price
	if typ == exchange.OrderTypeMarket {
		tif = "Ioc"
		mid, err := s.midPrice(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if side == exchange.OrderSideBuy {
			limitPx = mid * (1 + marketSlippage)
		} else {
			limitPx = mid * (1 - marketSlippage)
		}
	}
	if limitPx <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", exchange.ErrInvalidOrder)
	}

	action := Action{
		Type:     ActionTypeOrder,
		Grouping: "na",
		Orders: []orderPayload{{
			Asset:     meta.index,
			IsBuy:     side == exchange.OrderSideBuy,
			LimitPx:   formatPrice(limitPx, meta.szDecimals),
			Sz:        formatSize(amount, meta.szDecimals),
			OrderType: orderTypePayload{Limit: &limitOrderPayload{TIF: tif}},
		}},
	}
	resp, err := s.client.doAction(ctx, action)
	if err != nil {
		return nil, err
	}
	statuses := resp.Response.Data.Statuses
	if len(statuses) == 0 {
		return nil, fmt.Errorf("hyperliquid: empty order response")
	}
	status := statuses[0]
	switch {
	case status.Error != "":
		return nil, classifyStatusError(status.Error)
	case status.Filled != nil:
		avg := parseFloat(status.Filled.AvgPx)
		filled := parseFloat(status.Filled.TotalSz)
		return &exchange.Order{
			ID:        strconv.FormatInt(status.Filled.Oid, 10),
			Timestamp: s.client.clock().UnixMilli(),
			Status:    exchange.OrderStatusClosed,
			Symbol:    symbol,
			Type:      typ,
			Side:      side,
			Price:     avg,
			Amount:    amount,
			Filled:    filled,
			Cost:      avg * filled,
		}, nil
	case status.Resting != nil:
		return &exchange.Order{
			ID:        strconv.FormatInt(status.Resting.Oid, 10),
			Timestamp: s.client.clock().UnixMilli(),
			Status:    exchange.OrderStatusOpen,
			Symbol:    symbol,
			Type:      typ,
			Side:      side,
			Price:     limitPx,
			Amount:    amount,
			Remaining: amount,
		}, nil
	}
	return nil, fmt.Errorf("hyperliquid: unrecognised order status")
}

func (s *Session) CancelOrder(ctx context.Context, symbol, id string) error {
	meta, err := s.assetFor(ctx, symbol)
	if err != nil {
		return err
	}
	oid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad order id %q", exchange.ErrOrderNotFound, id)
	}
	resp, err := s.client.doAction(ctx, Action{
		Type:    ActionTypeCancel,
		Cancels: []cancelPayload{{Asset: meta.index, Oid: oid}},
	})
	if err != nil {
		return err
	}
	for _, status := range resp.Response.Data.Statuses {
		if status.Error != "" {
			return classifyStatusError(status.Error)
		}
	}
	return nil
}

// formatSize rounds to the coin's size decimals and trims trailing zeros.
func formatSize(v float64, szDecimals int) string {
	pow := math.Pow(10, float64(szDecimals))
	return trimZeros(strconv.FormatFloat(math.Round(v*pow)/pow, 'f', szDecimals, 64))
}

// formatPrice keeps five significant figures capped at the coin's price
// decimals, matching the venue's tick rules.
func formatPrice(v float64, szDecimals int) string {
	if v > 0 {
		magnitude := math.Floor(math.Log10(v))
		scale := math.Pow(10, float64(priceSigFigs-1)-magnitude)
		v = math.Round(v*scale) / scale
	}
	decimals := priceMaxDecimals - szDecimals
	if decimals < 0 {
		decimals = 0
	}
	pow := math.Pow(10, float64(decimals))
	v = math.Round(v*pow) / pow
	return trimZeros(strconv.FormatFloat(v, 'f', decimals, 64))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" {
		return "0"
	}
	return s
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
