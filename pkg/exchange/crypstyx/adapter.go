// Package crypstyx is a bespoke adapter for the Crypstyx venue. The venue
// has no general-purpose client library, so the adapter speaks its REST API
// directly: an unauthenticated catalogue and candle surface plus an
// HMAC-signed account surface.
package crypstyx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"xgate-api/pkg/exchange"
)

const (
	venueID = "crypstyx"

	defaultSiteURL = "https://crypstyx.com"
	defaultAPIURL  = "https://api.crypstyx.com"

	defaultHTTPTimeout = 30 * time.Second
	defaultCandleDepth = 100

	graphTimeLayout = "2006-01-02T15:04:05"
)

func init() {
	exchange.Register(venueID, func(name string, opts exchange.Options) (exchange.Adapter, error) {
		adapterOpts := []Option{}
		if opts.Timeout > 0 {
			adapterOpts = append(adapterOpts, WithTimeout(opts.Timeout))
		}
		return New(opts.Credentials, adapterOpts...)
	})
}

// chartTypes maps unified timeframes to the venue's chart type names. The
// first entry of timeframeOrder is the fallback for unsupported values.
var chartTypes = map[string]string{
	"1m":  "Minute1",
	"5m":  "Minute5",
	"15m": "Minute15",
	"30m": "Minute30",
	"1h":  "Hour1",
	"6h":  "Hour6",
	"12h": "Hour12",
	"1d":  "Day1",
}

var timeframeOrder = []string{"1m", "5m", "15m", "30m", "1h", "6h", "12h", "1d"}

var features = exchange.Features{
	exchange.CapFetchMarkets:      false,
	exchange.CapFetchCurrencies:   true,
	exchange.CapFetchTicker:       false,
	exchange.CapFetchOHLCV:        true,
	exchange.CapFetchTrades:       false,
	exchange.CapFetchOrderBook:    false,
	exchange.CapFetchBalance:      true,
	exchange.CapFetchOrders:       false,
	exchange.CapFetchOpenOrders:   false,
	exchange.CapFetchClosedOrders: false,
	exchange.CapFetchOrder:        false,
	exchange.CapCreateOrder:       false,
	exchange.CapCancelOrder:       false,
	exchange.CapDeposit:           false,
	exchange.CapWithdraw:          false,
}

// Adapter implements the uniform venue contract against Crypstyx. Safe for
// concurrent use.
type Adapter struct {
	siteURL    string
	apiURL     string
	httpClient *http.Client
	security   *Security
	clock      func() time.Time

	mu         sync.Mutex
	symbols    []string
	currencies map[string]exchange.Currency
	pairIDs    map[string]int
}

// Option customises the adapter.
type Option func(*Adapter)

// WithBaseURLs overrides the site and API endpoints (primarily for testing).
func WithBaseURLs(siteURL, apiURL string) Option {
	return func(a *Adapter) {
		if siteURL != "" {
			a.siteURL = strings.TrimRight(siteURL, "/")
		}
		if apiURL != "" {
			a.apiURL = strings.TrimRight(apiURL, "/")
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *Adapter) {
		if httpClient != nil {
			a.httpClient = httpClient
		}
	}
}

// WithTimeout overrides the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.httpClient.Timeout = d
		}
	}
}

// WithClock overrides the time source used for candle windows and request
// signing (primarily for testing).
func WithClock(clock func() time.Time) Option {
	return func(a *Adapter) {
		if clock != nil {
			a.clock = clock
			if a.security != nil {
				a.security.clock = clock
			}
		}
	}
}

// New builds a Crypstyx adapter. Credentials are only needed for the signed
// account surface.
func New(creds exchange.Credentials, opts ...Option) (*Adapter, error) {
	a := &Adapter{
		siteURL:    defaultSiteURL,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		security:   NewSecurity(creds.APIKey, creds.Secret),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Adapter) Name() string { return venueID }

func (a *Adapter) Features() exchange.Features { return features.Clone() }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) guard(c exchange.Capability) error {
	if features.Has(c) {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", exchange.ErrInvalidOperation, venueID, c)
}

// load fetches the currency pair catalogue once per adapter lifetime.
func (a *Adapter) load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.symbols) != 0 {
		return nil
	}

	var entries []currencyPairsEntry
	if err := a.post(ctx, a.siteURL+"/api/trade/currencypairs", nil, &entries); err != nil {
		return err
	}

	symbols := make([]string, 0, len(entries))
	currencies := make(map[string]exchange.Currency, len(entries))
	pairIDs := make(map[string]int)
	for _, entry := range entries {
		base := entry.FirstCurrency
		currencies[base.Code] = exchange.Currency{
			ID:        fmt.Sprintf("%d", base.ID),
			Code:      base.Code,
			Precision: base.Scale,
		}
		for _, pair := range entry.Pairs {
			symbol := base.Code + "/" + pair.SecondCurrency.Code
			symbols = append(symbols, symbol)
			pairIDs[symbol] = pair.ID
		}
	}
	sort.Strings(symbols)

	a.symbols = symbols
	a.currencies = currencies
	a.pairIDs = pairIDs
	return nil
}

func (a *Adapter) Symbols(ctx context.Context) ([]string, error) {
	if err := a.guard(exchange.CapFetchCurrencies); err != nil {
		return nil, err
	}
	if err := a.load(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.symbols))
	copy(out, a.symbols)
	return out, nil
}

func (a *Adapter) Currencies(ctx context.Context) (map[string]exchange.Currency, error) {
	if err := a.guard(exchange.CapFetchCurrencies); err != nil {
		return nil, err
	}
	if err := a.load(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]exchange.Currency, len(a.currencies))
	for code, currency := range a.currencies {
		out[code] = currency
	}
	return out, nil
}

func (a *Adapter) Markets(ctx context.Context) (map[string]exchange.Market, error) {
	return nil, a.guard(exchange.CapFetchMarkets)
}

func (a *Adapter) Market(ctx context.Context, symbol exchange.Symbol) (*exchange.Market, error) {
	return nil, a.guard(exchange.CapFetchMarkets)
}

func (a *Adapter) Ticker(ctx context.Context, symbol exchange.Symbol) (*exchange.Ticker, error) {
	return nil, a.guard(exchange.CapFetchTicker)
}

func (a *Adapter) Candles(ctx context.Context, symbol exchange.Symbol, timeframe string, since int64, limit int) ([]exchange.Candle, error) {
	if err := a.guard(exchange.CapFetchOHLCV); err != nil {
		return nil, err
	}
	if err := a.load(ctx); err != nil {
		return nil, err
	}

	a.mu.Lock()
	pairID, ok := a.pairIDs[symbol.String()]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", exchange.ErrInvalidSymbol, symbol)
	}

	chartType, ok := chartTypes[timeframe]
	if !ok {
		chartType = chartTypes[timeframeOrder[0]]
	}
	if limit <= 0 {
		limit = defaultCandleDepth
	}

	req := graphDataRequest{
		PairID:      pairID,
		EndDateTime: a.clock().UTC().Format("2006-01-02T15:04:05Z"),
		Depth:       limit,
		ChartType:   chartType,
	}
	var rows []graphDataRow
	if err := a.post(ctx, a.siteURL+"/api/trade/graphdata", req, &rows); err != nil {
		return nil, err
	}

	candles := make([]exchange.Candle, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(graphTimeLayout, row.DateTime)
		if err != nil {
			return nil, fmt.Errorf("crypstyx: parse candle time %q: %w", row.DateTime, err)
		}
		candle := exchange.Candle{
			Timestamp: ts.UTC().UnixMilli(),
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		}
		if since > 0 && candle.Timestamp < since {
			continue
		}
		candles = append(candles, candle)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	return candles, nil
}

func (a *Adapter) Trades(ctx context.Context, symbol exchange.Symbol, since int64, limit int) ([]exchange.Trade, error) {
	return nil, a.guard(exchange.CapFetchTrades)
}

func (a *Adapter) Book(ctx context.Context, symbol exchange.Symbol, limit int) (*exchange.OrderBook, error) {
	return nil, a.guard(exchange.CapFetchOrderBook)
}

func (a *Adapter) Wallet(ctx context.Context) (*exchange.Wallet, error) {
	if err := a.guard(exchange.CapFetchBalance); err != nil {
		return nil, err
	}
	url := a.apiURL + "/api/tickers/1"
	header, err := a.security.Header(http.MethodGet, url, "")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("crypstyx: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", header)

	var entries []walletEntry
	if err := a.send(req, &entries); err != nil {
		return nil, err
	}
	wallet := &exchange.Wallet{
		Free:  make(map[string]float64, len(entries)),
		Used:  make(map[string]float64, len(entries)),
		Total: make(map[string]float64, len(entries)),
	}
	for _, entry := range entries {
		code := strings.ToUpper(entry.Code)
		wallet.Free[code] = entry.Available
		wallet.Used[code] = entry.Reserved
		wallet.Total[code] = entry.Available + entry.Reserved
	}
	return wallet, nil
}

func (a *Adapter) Balance(ctx context.Context, currency string) (*exchange.Balance, error) {
	wallet, err := a.Wallet(ctx)
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

func (a *Adapter) Orders(ctx context.Context, symbol exchange.Symbol, status exchange.OrderStatus, since int64, limit int) ([]exchange.Order, error) {
	return nil, a.guard(exchange.CapFetchOrders)
}

func (a *Adapter) Order(ctx context.Context, symbol exchange.Symbol, id string) (*exchange.Order, error) {
	return nil, a.guard(exchange.CapFetchOrder)
}

func (a *Adapter) CreateOrder(ctx context.Context, symbol exchange.Symbol, typ exchange.OrderType, side exchange.OrderSide, amount, price float64) (*exchange.Order, error) {
	return nil, a.guard(exchange.CapCreateOrder)
}

func (a *Adapter) CancelOrder(ctx context.Context, symbol exchange.Symbol, id string) error {
	return a.guard(exchange.CapCancelOrder)
}

func (a *Adapter) post(ctx context.Context, url string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("crypstyx: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("crypstyx: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return a.send(req, result)
}

func (a *Adapter) send(req *http.Request, result any) error {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crypstyx: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("crypstyx: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("crypstyx: http error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("crypstyx: decode response: %w", err)
	}
	return nil
}
