package svc

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"

	"xgate-api/internal/config"
	"xgate-api/pkg/exchange"
	"xgate-api/pkg/exchange/limits"
)

// ServiceContext bundles the gateway's shared dependencies: the hydrated
// configuration, the venue catalogue and the minimum-order-amount table
// loaded from the settings store.
type ServiceContext struct {
	Config   *config.Config
	Exchange *exchange.Config
	Limits   *limits.Limits
}

// NewServiceContext wires the context from loaded configuration. A missing
// or failing settings store degrades to no minimum-order enforcement rather
// than blocking startup.
func NewServiceContext(ctx context.Context, c *config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config:   c,
		Exchange: c.ExchangeConfig(),
	}
	if conn, ok := c.LimitsConn(); ok {
		loaded, err := limits.Load(ctx, conn)
		if err != nil {
			logx.Errorf("load order minimums: %v", err)
		} else {
			logx.Infof("order minimums loaded for %d venues", loaded.Len())
			svc.Limits = loaded
		}
	}
	return svc
}

// OpenVenue builds an adapter for the named venue with the configured
// credentials and the shared minimum-order table attached. An empty name
// resolves to the configured default.
func (s *ServiceContext) OpenVenue(name string, opts ...exchange.LoadOption) (exchange.Adapter, error) {
	if s.Limits != nil {
		opts = append([]exchange.LoadOption{exchange.WithLimits(s.Limits)}, opts...)
	}
	return s.Exchange.Open(name, opts...)
}
