package exchange_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xgate-api/pkg/exchange"
)

func TestMinOrderAmountErrorUnwrapsToInvalidOrder(t *testing.T) {
	err := &exchange.MinOrderAmountError{Exchange: "binance", Minimum: 10, Reason: "below notional"}

	assert.ErrorIs(t, err, exchange.ErrInvalidOrder, "callers matching the broad sentinel keep working")
	assert.Contains(t, err.Error(), "binance")
	assert.Contains(t, err.Error(), "10")

	wrapped := fmt.Errorf("create order: %w", err)
	var minErr *exchange.MinOrderAmountError
	require.True(t, errors.As(wrapped, &minErr))
	assert.Equal(t, 10.0, minErr.Minimum)
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		exchange.ErrInvalidExchange,
		exchange.ErrInvalidSymbol,
		exchange.ErrInvalidOperation,
		exchange.ErrInvalidOrder,
		exchange.ErrOrderNotFound,
		exchange.ErrRequestTimeout,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b)
		}
	}
}
