package svc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xgate-api/internal/config"
	"xgate-api/internal/svc"
	"xgate-api/pkg/exchange"
	_ "xgate-api/pkg/exchange/generic/sim"
)

func TestNewServiceContextWithoutStore(t *testing.T) {
	cfg := &config.Config{}
	svcCtx := svc.NewServiceContext(context.Background(), cfg)

	assert.Nil(t, svcCtx.Limits)
	require.NotNil(t, svcCtx.Exchange)
	assert.Empty(t, svcCtx.Exchange.Default)
}

func TestOpenVenueResolvesDefault(t *testing.T) {
	cfg := &config.Config{}
	cfg.Exchange.Value = &exchange.Config{
		Default: "sim",
		Venues:  map[string]*exchange.VenueConfig{"sim": {}},
	}
	svcCtx := svc.NewServiceContext(context.Background(), cfg)

	adapter, err := svcCtx.OpenVenue("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	assert.Equal(t, "sim", adapter.Name())
}

func TestOpenVenueUnknownName(t *testing.T) {
	cfg := &config.Config{}
	svcCtx := svc.NewServiceContext(context.Background(), cfg)

	_, err := svcCtx.OpenVenue("nosuchvenue")
	assert.ErrorIs(t, err, exchange.ErrInvalidExchange)
}
