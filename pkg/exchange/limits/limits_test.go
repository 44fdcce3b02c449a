package limits

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	rows []settingsRow
	err  error
}

func (f *fakeConn) QueryRowsCtx(ctx context.Context, v any, query string, args ...any) error {
	if f.err != nil {
		return f.err
	}
	out, ok := v.(*[]settingsRow)
	if !ok {
		return errors.New("unexpected scan target")
	}
	*out = f.rows
	return nil
}

func TestFetchNormalisesKeys(t *testing.T) {
	lim := New(map[string]float64{" Binance ": 10, "crypstyx": 25.5})

	assert.Equal(t, 10.0, lim.Fetch("binance"))
	assert.Equal(t, 10.0, lim.Fetch("  BINANCE"), "lookup trims and lower-cases")
	assert.Equal(t, 25.5, lim.Fetch("crypstyx"))
	assert.Zero(t, lim.Fetch("kraken"), "unknown venue reads as no minimum")
	assert.Equal(t, 2, lim.Len())
}

func TestNilLimitsAreUsable(t *testing.T) {
	var lim *Limits
	assert.Zero(t, lim.Fetch("binance"))
	assert.Zero(t, lim.Len())
}

func TestLoadRunsBulkQuery(t *testing.T) {
	conn := &fakeConn{rows: []settingsRow{
		{Exchange: "binance", MinOrderAmount: 10},
		{Exchange: "hyperliquid", MinOrderAmount: 12},
	}}

	lim, err := Load(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, 10.0, lim.Fetch("binance"))
	assert.Equal(t, 12.0, lim.Fetch("hyperliquid"))
}

func TestLoadPropagatesQueryFailure(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection refused")}
	_, err := Load(context.Background(), conn)
	assert.Error(t, err)
}

func TestCacheLoadsExactlyOnce(t *testing.T) {
	var calls atomic.Int32
	cache := NewCache(func(ctx context.Context) (*Limits, error) {
		calls.Add(1)
		return New(map[string]float64{"binance": 10}), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, 10.0, cache.Get().Fetch("binance"))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load(), "concurrent first use triggers one load")
}

func TestCacheDegradesToEmptyOnFailure(t *testing.T) {
	var calls atomic.Int32
	cache := NewCache(func(ctx context.Context) (*Limits, error) {
		calls.Add(1)
		return nil, errors.New("store down")
	})

	lim := cache.Get()
	require.NotNil(t, lim)
	assert.Zero(t, lim.Fetch("binance"), "failed load reads as no known minimums")

	cache.Get()
	assert.Equal(t, int32(1), calls.Load(), "failure is not retried within the process")
}
