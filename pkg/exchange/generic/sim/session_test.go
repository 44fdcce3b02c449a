package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xgate-api/pkg/exchange"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestLoadMarketsListsDefaults(t *testing.T) {
	s := New()
	markets, currencies, err := s.LoadMarkets(context.Background())
	require.NoError(t, err)

	require.Contains(t, markets, "BTC/USDT")
	require.Contains(t, markets, "ETH/BTC")
	m := markets["BTC/USDT"]
	assert.Equal(t, "BTCUSDT", m.ID)
	assert.Equal(t, "BTC", m.Base)
	assert.Equal(t, "USDT", m.Quote)
	assert.True(t, m.Active)
	assert.Equal(t, minNotional, m.Limits.Cost.Min)

	for _, code := range []string{"BTC", "ETH", "SOL", "USDT"} {
		assert.Contains(t, currencies, code)
	}
}

func TestFetchTickerTracksLastPrice(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(fixedClock(now)))

	require.NoError(t, s.SetLastPrice("BTC/USDT", 50000))
	ticker, err := s.FetchTicker(context.Background(), "BTC/USDT")
	require.NoError(t, err)

	assert.Equal(t, 50000.0, ticker.Last)
	assert.Equal(t, now.UnixMilli(), ticker.Timestamp)
	assert.Less(t, ticker.Bid, ticker.Last)
	assert.Greater(t, ticker.Ask, ticker.Last)
}

func TestSetLastPriceValidation(t *testing.T) {
	s := New()
	assert.Error(t, s.SetLastPrice("BTC/USDT", 0))
	err := s.SetLastPrice("DOGE/USDT", 1)
	assert.ErrorIs(t, err, exchange.ErrInvalidSymbol)
}

func TestFetchCandlesAlignedBuckets(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 37, 0, time.UTC)
	s := New(WithClock(fixedClock(now)))

	candles, err := s.FetchCandles(context.Background(), "BTC/USDT", "1m", 0, 10)
	require.NoError(t, err)
	require.Len(t, candles, 10)

	stepMs := time.Minute.Milliseconds()
	end := now.UnixMilli() / stepMs * stepMs
	assert.Equal(t, end, candles[len(candles)-1].Timestamp)
	for i := 1; i < len(candles); i++ {
		assert.Equal(t, stepMs, candles[i].Timestamp-candles[i-1].Timestamp)
	}
	for _, c := range candles {
		assert.GreaterOrEqual(t, c.High, c.Open)
		assert.GreaterOrEqual(t, c.High, c.Close)
		assert.LessOrEqual(t, c.Low, c.Open)
		assert.LessOrEqual(t, c.Low, c.Close)
	}
}

func TestFetchCandlesSinceTrimsWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(fixedClock(now)))

	since := now.Add(-3 * time.Minute).UnixMilli()
	candles, err := s.FetchCandles(context.Background(), "BTC/USDT", "1m", since, 100)
	require.NoError(t, err)
	require.NotEmpty(t, candles)
	assert.GreaterOrEqual(t, candles[0].Timestamp, since)
	assert.Len(t, candles, 4)
}

func TestFetchBookSortedLevels(t *testing.T) {
	s := New()
	book, err := s.FetchBook(context.Background(), "ETH/USDT", 5)
	require.NoError(t, err)
	require.Len(t, book.Bids, 5)
	require.Len(t, book.Asks, 5)

	for i := 1; i < len(book.Bids); i++ {
		assert.Less(t, book.Bids[i].Price, book.Bids[i-1].Price)
	}
	for i := 1; i < len(book.Asks); i++ {
		assert.Greater(t, book.Asks[i].Price, book.Asks[i-1].Price)
	}
	assert.Less(t, book.Bids[0].Price, book.Asks[0].Price)
}

func TestMarketOrderFillsAndMovesBalances(t *testing.T) {
	s := New()
	require.NoError(t, s.SetLastPrice("BTC/USDT", 50000))

	order, err := s.CreateOrder(context.Background(), "BTC/USDT",
		exchange.OrderTypeMarket, exchange.OrderSideBuy, 0.5, 0)
	require.NoError(t, err)

	assert.Equal(t, exchange.OrderStatusClosed, order.Status)
	assert.Equal(t, 0.5, order.Filled)
	assert.Equal(t, 0.0, order.Remaining)
	assert.Equal(t, 25000.0, order.Cost)

	wallet, err := s.FetchWallet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultQuoteBalance-25000, wallet.Free["USDT"])
	assert.Equal(t, 1.5, wallet.Free["BTC"])
}

func TestLimitOrderRestsUntilCanceled(t *testing.T) {
	s := New()
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, "BTC/USDT",
		exchange.OrderTypeLimit, exchange.OrderSideBuy, 0.1, 60000)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusOpen, order.Status)

	open, err := s.FetchOpenOrders(ctx, "BTC/USDT", 0, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, order.ID, open[0].ID)

	require.NoError(t, s.CancelOrder(ctx, "BTC/USDT", order.ID))

	open, err = s.FetchOpenOrders(ctx, "BTC/USDT", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, open)

	closed, err := s.FetchClosedOrders(ctx, "BTC/USDT", 0, 0)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, exchange.OrderStatusCanceled, closed[0].Status)
}

func TestCreateOrderRejectsDust(t *testing.T) {
	s := New()
	_, err := s.CreateOrder(context.Background(), "BTC/USDT",
		exchange.OrderTypeLimit, exchange.OrderSideBuy, 0.0001, 100)
	assert.ErrorIs(t, err, exchange.ErrInvalidOrder)

	_, err = s.CreateOrder(context.Background(), "BTC/USDT",
		exchange.OrderTypeLimit, exchange.OrderSideBuy, -1, 100)
	assert.ErrorIs(t, err, exchange.ErrInvalidOrder)
}

func TestCancelOrderNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.CancelOrder(ctx, "BTC/USDT", "42")
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)

	order, err := s.CreateOrder(ctx, "BTC/USDT",
		exchange.OrderTypeLimit, exchange.OrderSideSell, 0.1, 70000)
	require.NoError(t, err)

	// Wrong symbol for an existing id is still not-found.
	err = s.CancelOrder(ctx, "ETH/USDT", order.ID)
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)

	require.NoError(t, s.CancelOrder(ctx, "BTC/USDT", order.ID))
	err = s.CancelOrder(ctx, "BTC/USDT", order.ID)
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
}

func TestFetchOrderCopiesState(t *testing.T) {
	s := New()
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, "SOL/USDT",
		exchange.OrderTypeLimit, exchange.OrderSideBuy, 1, 140)
	require.NoError(t, err)

	got, err := s.FetchOrder(ctx, "SOL/USDT", order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got.Status = exchange.OrderStatusClosed
	again, err := s.FetchOrder(ctx, "SOL/USDT", order.ID)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusOpen, again.Status)

	_, err = s.FetchOrder(ctx, "SOL/USDT", "999")
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
}

func TestFetchOrdersSortedByTimestamp(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		now = base.Add(time.Duration(i) * time.Second)
		_, err := s.CreateOrder(ctx, "BTC/USDT",
			exchange.OrderTypeLimit, exchange.OrderSideBuy, 0.1, 60000)
		require.NoError(t, err)
	}

	orders, err := s.FetchOrders(ctx, "BTC/USDT", 0, 0)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	for i := 1; i < len(orders); i++ {
		assert.LessOrEqual(t, orders[i-1].Timestamp, orders[i].Timestamp)
	}

	limited, err := s.FetchOrders(ctx, "BTC/USDT", 0, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	since, err := s.FetchOrders(ctx, "BTC/USDT", base.Add(time.Second).UnixMilli(), 0)
	require.NoError(t, err)
	assert.Len(t, since, 2)
}
