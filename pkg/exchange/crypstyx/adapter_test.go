package crypstyx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xgate-api/pkg/exchange"
)

const currencyPairsBody = `[
  {
    "firstCurrency": {"id": 1, "code": "BTC", "scale": 8},
    "pairs": [
      {"id": 10, "secondCurrency": {"id": 3, "code": "USDT", "scale": 2}},
      {"id": 11, "secondCurrency": {"id": 4, "code": "EUR", "scale": 2}}
    ]
  },
  {
    "firstCurrency": {"id": 2, "code": "ETH", "scale": 8},
    "pairs": [
      {"id": 12, "secondCurrency": {"id": 3, "code": "USDT", "scale": 2}}
    ]
  }
]`

func newTestAdapter(t *testing.T, handler http.Handler) (*Adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a, err := New(
		exchange.Credentials{APIKey: "apikey123", Secret: testSecret},
		WithBaseURLs(srv.URL, srv.URL),
		WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	return a, srv
}

func TestSymbolsLoadCatalogueOnce(t *testing.T) {
	calls := 0
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/trade/currencypairs", r.URL.Path)
		calls++
		_, _ = w.Write([]byte(currencyPairsBody))
	}))

	ctx := context.Background()
	symbols, err := a.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/EUR", "BTC/USDT", "ETH/USDT"}, symbols)

	currencies, err := a.Currencies(ctx)
	require.NoError(t, err)
	require.Contains(t, currencies, "BTC")
	assert.Equal(t, 8, currencies["BTC"].Precision)

	assert.Equal(t, 1, calls)
}

func TestCandlesRequestShape(t *testing.T) {
	var gotGraph graphDataRequest
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/trade/currencypairs":
			_, _ = w.Write([]byte(currencyPairsBody))
		case "/api/trade/graphdata":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotGraph))
			_, _ = w.Write([]byte(`[
  {"dateTime": "2024-06-01T11:00:00", "open": 65000, "high": 65200, "low": 64900, "close": 65100, "volume": 12.5},
  {"dateTime": "2024-06-01T10:00:00", "open": 64800, "high": 65050, "low": 64700, "close": 65000, "volume": 9.1}
]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.Error(w, "unexpected path", http.StatusNotFound)
		}
	}))

	symbol, err := exchange.ParseSymbol("BTC/USDT")
	require.NoError(t, err)

	candles, err := a.Candles(context.Background(), symbol, "1h", 0, 50)
	require.NoError(t, err)

	assert.Equal(t, 10, gotGraph.PairID)
	assert.Equal(t, "Hour1", gotGraph.ChartType)
	assert.Equal(t, 50, gotGraph.Depth)
	assert.Equal(t, "2024-06-01T12:00:00Z", gotGraph.EndDateTime)

	require.Len(t, candles, 2)
	assert.Less(t, candles[0].Timestamp, candles[1].Timestamp)
	assert.Equal(t, 65100.0, candles[1].Close)
	assert.Equal(t, time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC).UnixMilli(), candles[1].Timestamp)
}

func TestCandlesUnsupportedTimeframeFallsBack(t *testing.T) {
	var gotGraph graphDataRequest
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/trade/currencypairs":
			_, _ = w.Write([]byte(currencyPairsBody))
		case "/api/trade/graphdata":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotGraph))
			_, _ = w.Write([]byte(`[]`))
		}
	}))

	symbol, err := exchange.ParseSymbol("ETH/USDT")
	require.NoError(t, err)

	_, err = a.Candles(context.Background(), symbol, "7m", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Minute1", gotGraph.ChartType)
	assert.Equal(t, defaultCandleDepth, gotGraph.Depth)
}

func TestCandlesUnknownSymbol(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(currencyPairsBody))
	}))

	symbol, err := exchange.ParseSymbol("DOGE/USDT")
	require.NoError(t, err)

	_, err = a.Candles(context.Background(), symbol, "1h", 0, 0)
	assert.ErrorIs(t, err, exchange.ErrInvalidSymbol)
}

func TestWalletSendsSignedRequest(t *testing.T) {
	var gotAuth string
	a, srv := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tickers/1", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[
  {"code": "btc", "available": 0.5, "reserved": 0.1},
  {"code": "usdt", "available": 1000, "reserved": 0}
]`))
	}))

	wallet, err := a.Wallet(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0.5, wallet.Free["BTC"])
	assert.Equal(t, 0.1, wallet.Used["BTC"])
	assert.InDelta(t, 0.6, wallet.Total["BTC"], 1e-9)
	assert.Equal(t, 1000.0, wallet.Free["USDT"])

	require.True(t, strings.HasPrefix(gotAuth, "amx apikey123:"))
	assert.Equal(t, expectedHeader(t, a.security, "GET", srv.URL+"/api/tickers/1", ""), gotAuth)
}

func TestBalanceReadsWallet(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"code": "eth", "available": 2, "reserved": 0.5}]`))
	}))

	balance, err := a.Balance(context.Background(), " eth ")
	require.NoError(t, err)
	assert.Equal(t, 2.0, balance.Free)
	assert.Equal(t, 0.5, balance.Used)
	assert.Equal(t, 2.5, balance.Total)

	missing, err := a.Balance(context.Background(), "XRP")
	require.NoError(t, err)
	assert.Zero(t, missing.Total)
}

func TestUnsupportedOperationsAreGuarded(t *testing.T) {
	calls := 0
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	ctx := context.Background()
	symbol, err := exchange.ParseSymbol("BTC/USDT")
	require.NoError(t, err)

	_, err = a.Markets(ctx)
	assert.ErrorIs(t, err, exchange.ErrInvalidOperation)
	_, err = a.Ticker(ctx, symbol)
	assert.ErrorIs(t, err, exchange.ErrInvalidOperation)
	_, err = a.Trades(ctx, symbol, 0, 0)
	assert.ErrorIs(t, err, exchange.ErrInvalidOperation)
	_, err = a.Book(ctx, symbol, 0)
	assert.ErrorIs(t, err, exchange.ErrInvalidOperation)
	_, err = a.Orders(ctx, symbol, exchange.OrderStatusAny, 0, 0)
	assert.ErrorIs(t, err, exchange.ErrInvalidOperation)
	_, err = a.Order(ctx, symbol, "1")
	assert.ErrorIs(t, err, exchange.ErrInvalidOperation)
	_, err = a.CreateOrder(ctx, symbol, exchange.OrderTypeLimit, exchange.OrderSideBuy, 1, 1)
	assert.ErrorIs(t, err, exchange.ErrInvalidOperation)
	err = a.CancelOrder(ctx, symbol, "1")
	assert.ErrorIs(t, err, exchange.ErrInvalidOperation)

	assert.Zero(t, calls)
}

func TestRegisteredWithFactory(t *testing.T) {
	adapter, err := exchange.Load("crypstyx", exchange.Credentials{APIKey: "k", Secret: testSecret})
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	assert.Equal(t, "crypstyx", adapter.Name())
	assert.True(t, adapter.Features().Has(exchange.CapFetchOHLCV))
	assert.False(t, adapter.Features().Has(exchange.CapCreateOrder))
}
