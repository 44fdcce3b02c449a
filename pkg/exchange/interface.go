package exchange

import "context"

// Adapter translates the uniform gateway contract to one venue's protocol.
// Every data operation that depends on an optional venue capability checks
// the corresponding feature flag before touching the network and fails with
// ErrInvalidOperation when unsupported.
//
// Adapter instances are not shared across concurrent callers. Close releases
// the underlying connection and is mandatory after every use, exactly once
// per instance.
type Adapter interface {
	// Name returns the exchange identifier the factory resolved.
	Name() string
	// Features returns the fixed capability table for this instance.
	Features() Features

	// Market catalogue.
	Symbols(ctx context.Context) ([]string, error)
	Currencies(ctx context.Context) (map[string]Currency, error)
	Markets(ctx context.Context) (map[string]Market, error)
	Market(ctx context.Context, symbol Symbol) (*Market, error)

	// Market data.
	Ticker(ctx context.Context, symbol Symbol) (*Ticker, error)
	Candles(ctx context.Context, symbol Symbol, timeframe string, since int64, limit int) ([]Candle, error)
	Trades(ctx context.Context, symbol Symbol, since int64, limit int) ([]Trade, error)
	Book(ctx context.Context, symbol Symbol, limit int) (*OrderBook, error)

	// Account.
	Wallet(ctx context.Context) (*Wallet, error)
	Balance(ctx context.Context, currency string) (*Balance, error)

	// Order lifecycle.
	Orders(ctx context.Context, symbol Symbol, status OrderStatus, since int64, limit int) ([]Order, error)
	Order(ctx context.Context, symbol Symbol, id string) (*Order, error)
	CreateOrder(ctx context.Context, symbol Symbol, typ OrderType, side OrderSide, amount, price float64) (*Order, error)
	CancelOrder(ctx context.Context, symbol Symbol, id string) error

	Close() error
}
