package main

import (
	"context"
	"flag"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"xgate-api/internal/cli"
	"xgate-api/internal/config"
	"xgate-api/internal/svc"
	"xgate-api/pkg/exchange"
	_ "xgate-api/pkg/exchange/crypstyx"
	_ "xgate-api/pkg/exchange/generic/binance"
	_ "xgate-api/pkg/exchange/generic/hyperliquid"
	_ "xgate-api/pkg/exchange/generic/sim"
)

func fatalf(format string, args ...interface{}) {
	logx.Errorf(format, args...)
	os.Exit(1)
}

func main() {
	var (
		configPath = flag.String("f", "etc/gateway.yaml", "path to gateway configuration")
		venueName  = flag.String("venue", "", "venue to inspect; empty walks every registered venue")
		symbolRaw  = flag.String("symbol", "", "symbol to sample, e.g. BTC/USDT")
		timeframe  = flag.String("timeframe", "1m", "candle timeframe for the sample")
		limit      = flag.Int("limit", 5, "sample size for candles")
	)
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logx.MustSetup(cfg.Log)
	logx.DisableStat()
	cli.LogConfigSummary(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	svcCtx := svc.NewServiceContext(ctx, cfg)

	if *venueName == "" {
		listVenues(ctx)
		return
	}
	inspectVenue(ctx, svcCtx, *venueName, *symbolRaw, *timeframe, *limit)
}

func listVenues(ctx context.Context) {
	err := exchange.List(ctx, func(name string, adapter exchange.Adapter) error {
		logx.Infof("venue %s supports %s", name, supportedCaps(adapter.Features()))
		return nil
	})
	if err != nil {
		fatalf("list venues: %v", err)
	}
}

func supportedCaps(features exchange.Features) string {
	caps := make([]string, 0, len(features))
	for capability, supported := range features {
		if supported {
			caps = append(caps, string(capability))
		}
	}
	sort.Strings(caps)
	return strings.Join(caps, ", ")
}

func inspectVenue(ctx context.Context, svcCtx *svc.ServiceContext, venue, symbolRaw, timeframe string, limit int) {
	adapter, err := svcCtx.OpenVenue(venue)
	if err != nil {
		fatalf("open venue %s: %v", venue, err)
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			logx.Errorf("close venue %s: %v", venue, err)
		}
	}()

	logx.Infof("venue %s supports %s", adapter.Name(), supportedCaps(adapter.Features()))

	if adapter.Features().Has(exchange.CapFetchMarkets) {
		symbols, err := adapter.Symbols(ctx)
		if err != nil {
			fatalf("fetch symbols: %v", err)
		}
		logx.Infof("%d symbols listed", len(symbols))
	}

	if symbolRaw == "" {
		return
	}
	symbol, err := exchange.ParseSymbol(symbolRaw)
	if err != nil {
		fatalf("parse symbol %q: %v", symbolRaw, err)
	}

	if adapter.Features().Has(exchange.CapFetchTicker) {
		ticker, err := adapter.Ticker(ctx, symbol)
		if err != nil {
			fatalf("fetch ticker: %v", err)
		}
		logx.Infof("%s last=%.8g bid=%.8g ask=%.8g", symbol, ticker.Last, ticker.Bid, ticker.Ask)
	}

	if adapter.Features().Has(exchange.CapFetchOHLCV) {
		candles, err := adapter.Candles(ctx, symbol, timeframe, 0, limit)
		if err != nil {
			fatalf("fetch candles: %v", err)
		}
		for _, candle := range candles {
			logx.Infof("%s %s o=%.8g h=%.8g l=%.8g c=%.8g v=%.8g",
				symbol, time.UnixMilli(candle.Timestamp).UTC().Format(time.RFC3339),
				candle.Open, candle.High, candle.Low, candle.Close, candle.Volume)
		}
	}
}
