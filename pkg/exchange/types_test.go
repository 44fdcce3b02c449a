package exchange_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xgate-api/pkg/exchange"
)

func TestNewSymbol(t *testing.T) {
	symbol, err := exchange.NewSymbol("btc", " usdt ")
	require.NoError(t, err)
	assert.Equal(t, "BTC", symbol.Base, "legs are upper-cased")
	assert.Equal(t, "USDT", symbol.Quote)
	assert.Equal(t, "BTC/USDT", symbol.String())

	_, err = exchange.NewSymbol("", "USDT")
	assert.ErrorIs(t, err, exchange.ErrInvalidSymbol)
	_, err = exchange.NewSymbol("BTC", "  ")
	assert.ErrorIs(t, err, exchange.ErrInvalidSymbol)
}

func TestParseSymbol(t *testing.T) {
	symbol, err := exchange.ParseSymbol("eth/btc")
	require.NoError(t, err)
	assert.Equal(t, "ETH/BTC", symbol.String())

	for _, raw := range []string{"", "BTCUSDT", "/USDT", "BTC/"} {
		_, err := exchange.ParseSymbol(raw)
		assert.ErrorIs(t, err, exchange.ErrInvalidSymbol, "raw=%q", raw)
	}
}

func TestFeaturesHasAndClone(t *testing.T) {
	features := exchange.Features{
		exchange.CapFetchTicker: true,
		exchange.CapCreateOrder: false,
	}
	assert.True(t, features.Has(exchange.CapFetchTicker))
	assert.False(t, features.Has(exchange.CapCreateOrder), "explicit false reads as unsupported")
	assert.False(t, features.Has(exchange.CapDeposit), "absent reads as unsupported")

	clone := features.Clone()
	clone[exchange.CapFetchTicker] = false
	assert.True(t, features.Has(exchange.CapFetchTicker), "clone is independent")
}
