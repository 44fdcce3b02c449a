package exchange

// Normalized trading domain types shared across venue adapters. These
// structures mirror what venues commonly report while remaining
// venue-agnostic, so the presentation layer can serialize them directly.

import (
	"fmt"
	"strings"
)

// Symbol is an ordered (base, quote) currency pair. Both legs are
// normalized to uppercase at construction; the string form "BASE/QUOTE"
// is the unified key used for market lookups and map keys.
type Symbol struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// NewSymbol builds a normalized Symbol. Empty legs are rejected.
func NewSymbol(base, quote string) (Symbol, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || quote == "" {
		return Symbol{}, fmt.Errorf("%w: base and quote are required", ErrInvalidSymbol)
	}
	return Symbol{Base: base, Quote: quote}, nil
}

// ParseSymbol parses the unified "BASE/QUOTE" form.
func ParseSymbol(s string) (Symbol, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok {
		return Symbol{}, fmt.Errorf("%w: %q is not BASE/QUOTE", ErrInvalidSymbol, s)
	}
	return NewSymbol(base, quote)
}

// String renders the unified "BASE/QUOTE" form.
func (s Symbol) String() string {
	return s.Base + "/" + s.Quote
}

// IsZero reports whether the symbol is unset.
func (s Symbol) IsZero() bool {
	return s.Base == "" && s.Quote == ""
}

// Capability names a single optional venue feature.
type Capability string

const (
	CapFetchMarkets      Capability = "fetchMarkets"
	CapFetchCurrencies   Capability = "fetchCurrencies"
	CapFetchTicker       Capability = "fetchTicker"
	CapFetchOHLCV        Capability = "fetchOHLCV"
	CapFetchTrades       Capability = "fetchTrades"
	CapFetchOrderBook    Capability = "fetchOrderBook"
	CapFetchBalance      Capability = "fetchBalance"
	CapFetchOrders       Capability = "fetchOrders"
	CapFetchOpenOrders   Capability = "fetchOpenOrders"
	CapFetchClosedOrders Capability = "fetchClosedOrders"
	CapFetchOrder        Capability = "fetchOrder"
	CapCreateOrder       Capability = "createOrder"
	CapCancelOrder       Capability = "cancelOrder"
	CapDeposit           Capability = "deposit"
	CapWithdraw          Capability = "withdraw"
)

// Features maps capability names to venue support. It is fixed per adapter
// instance: sourced from the backend at construction or hardcoded for
// bespoke venues.
type Features map[Capability]bool

// Has reports whether the capability is supported.
func (f Features) Has(c Capability) bool {
	return f[c]
}

// Clone returns an independent copy so adapter instances cannot leak
// mutations into shared feature tables.
func (f Features) Clone() Features {
	out := make(Features, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Currency describes a venue-listed currency.
type Currency struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Precision int    `json:"precision"`
}

// Limit bounds a single order axis.
type Limit struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MarketPrecision carries decimal precision per order axis.
type MarketPrecision struct {
	Price  int `json:"price"`
	Amount int `json:"amount"`
	Cost   int `json:"cost"`
}

// MarketLimits carries min/max bounds per order axis.
type MarketLimits struct {
	Price  Limit `json:"price"`
	Amount Limit `json:"amount"`
	Cost   Limit `json:"cost"`
}

// Market is a venue-supplied description of one trading pair. Read-only
// once fetched.
type Market struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Active    bool            `json:"active"`
	Precision MarketPrecision `json:"precision"`
	Limits    MarketLimits    `json:"limits"`
}

// Ticker is a point-in-time price summary for one symbol.
type Ticker struct {
	Symbol      string  `json:"symbol"`
	Timestamp   int64   `json:"timestamp"`
	Bid         float64 `json:"bid"`
	BidVolume   float64 `json:"bidVolume"`
	Ask         float64 `json:"ask"`
	AskVolume   float64 `json:"askVolume"`
	Last        float64 `json:"last"`
	BaseVolume  float64 `json:"baseVolume"`
	QuoteVolume float64 `json:"quoteVolume"`
}

// Candle is one OHLCV bucket. Timestamp is milliseconds since epoch.
// Sequences are ordered oldest-first, one candle per timeframe bucket.
type Candle struct {
	Timestamp int64   `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

// Trade is one public execution reported by the venue.
type Trade struct {
	ID        string    `json:"id"`
	Timestamp int64     `json:"timestamp"`
	Order     string    `json:"order,omitempty"`
	Type      OrderType `json:"type,omitempty"`
	Side      OrderSide `json:"side"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
}

// Offer is one price level of an order book.
type Offer struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// OrderBook holds both book sides in the venue's own ordering: bids
// descending, asks ascending by convention of the source. The adapter does
// not re-sort.
type OrderBook struct {
	Bids []Offer `json:"bids"`
	Asks []Offer `json:"asks"`
}

// Wallet maps currency codes to balance buckets.
type Wallet struct {
	Free  map[string]float64 `json:"free"`
	Used  map[string]float64 `json:"used"`
	Total map[string]float64 `json:"total"`
}

// Balance is the per-currency view of a wallet. A currency the venue never
// reported yields the zero value, not an error.
type Balance struct {
	Free  float64 `json:"free"`
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// OrderSide is the order direction.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType distinguishes market and limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus is the venue-reported lifecycle state. The gateway never
// tracks order state locally. The empty value means "any" in queries.
type OrderStatus string

const (
	OrderStatusAny      OrderStatus = ""
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusClosed   OrderStatus = "closed"
	OrderStatusCanceled OrderStatus = "canceled"
)

// OrderFee records the fee the venue charged for an order.
type OrderFee struct {
	Currency string  `json:"currency,omitempty"`
	Cost     float64 `json:"cost"`
	Rate     float64 `json:"rate,omitempty"`
}

// Order is a venue-reported order. Created by CreateOrder, mutated only by
// the remote venue, observed via Order/Orders, terminated by a venue-side
// fill or by CancelOrder.
type Order struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	LastTrade int64       `json:"lastTrade,omitempty"`
	Status    OrderStatus `json:"status"`
	Symbol    string      `json:"symbol"`
	Type      OrderType   `json:"type"`
	Side      OrderSide   `json:"side"`
	Price     float64     `json:"price"`
	Amount    float64     `json:"amount"`
	Filled    float64     `json:"filled"`
	Remaining float64     `json:"remaining"`
	Cost      float64     `json:"cost"`
	Fee       OrderFee    `json:"fee"`
}
