// Package pricing implements the pricing bounded context: venue quotes for
// the configured symbols.
package pricing

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/brl-arbitrage-bot/business/pricing/app"
	pricingDI "github.com/fd1az/brl-arbitrage-bot/business/pricing/di"
	"github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/business/pricing/infra/binance"
	"github.com/fd1az/brl-arbitrage-bot/business/pricing/infra/bitpreco"
	"github.com/fd1az/brl-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/brl-arbitrage-bot/internal/config"
	"github.com/fd1az/brl-arbitrage-bot/internal/di"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
	"github.com/fd1az/brl-arbitrage-bot/internal/monolith"
	"github.com/fd1az/brl-arbitrage-bot/internal/ratelimit"
)

// Module implements the pricing bounded context.
type Module struct{}

func quota(rl config.RateLimitConfig) ratelimit.Quota {
	return ratelimit.Quota{MaxRequests: rl.MaxRequests, Window: rl.Window}
}

func breakerConfig(venue domain.Venue, log logger.LoggerInterface) circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig(string(venue))
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "venue circuit breaker changed state",
			"venue", name, "from", from.String(), "to", to.String())
	}
	return cfg
}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.BitprecoProvider, func(sr di.ServiceRegistry) *bitpreco.Provider {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)
		vc := cfg.Venues.Bitpreco

		provider, err := bitpreco.NewProvider(bitpreco.Config{
			BaseURL:   vc.BaseURL,
			Timeout:   vc.Timeout,
			RateLimit: quota(vc.RateLimit),
			Breaker:   breakerConfig(domain.VenueBitpreco, log),
		}, log)
		if err != nil {
			panic("failed to create bitpreco provider: " + err.Error())
		}
		return provider
	})

	di.RegisterToken(c, pricingDI.BinanceProvider, func(sr di.ServiceRegistry) *binance.Provider {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)
		vc := cfg.Venues.Binance

		symbols, err := domain.ParseSymbols(cfg.Trading.Symbols)
		if err != nil {
			panic("invalid trading symbols: " + err.Error())
		}

		provider, err := binance.NewProvider(binance.ProviderConfig{
			HTTPURL:       vc.BaseURL,
			Timeout:       vc.Timeout,
			RateLimit:     quota(vc.RateLimit),
			Depth:         20,
			Breaker:       breakerConfig(domain.VenueBinance, log),
			StreamEnabled: vc.StreamEnabled,
			WebSocketURL:  vc.StreamURL,
			Symbols:       symbols,
			StaleTimeout:  vc.StaleTimeout,
		}, log)
		if err != nil {
			panic("failed to create binance provider: " + err.Error())
		}
		return provider
	})

	// QuoteService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.QuoteService, func(sr di.ServiceRegistry) *app.QuoteService {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)

		providers := []app.MarketDataProvider{
			pricingDI.GetBitprecoProvider(sr),
			pricingDI.GetBinanceProvider(sr),
		}
		svc, err := app.NewQuoteService(providers, cfg.Trading.FetchTimeout, log)
		if err != nil {
			panic("failed to create quote service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup registers venue health checks and opens the optional Binance stream.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := pricingDI.GetQuoteService(mono.Services())

	for _, p := range svc.Providers() {
		if hr, ok := p.(app.HealthReporter); ok {
			mono.Health().RegisterCheck("venue:"+p.Venue().String(), func(context.Context) (bool, string) {
				return hr.Healthy()
			})
		}
	}

	// Connect Binance stream (don't fail if connection fails - REST serves meanwhile)
	bn := pricingDI.GetBinanceProvider(mono.Services())
	if bn.Streaming() {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := bn.Connect(connectCtx); err != nil {
			log.Warn(ctx, "binance stream connection failed, will retry in background", "error", err)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-time.After(5 * time.Second):
						if err := bn.Connect(ctx); err != nil {
							log.Warn(ctx, "binance stream retry failed", "error", err)
						} else {
							log.Info(ctx, "binance stream connected")
							return
						}
					}
				}
			}()
		}
	}

	log.Info(ctx, "pricing module started", "venues", len(svc.Providers()))
	return nil
}

// Shutdown closes venue streams.
func (m *Module) Shutdown(mono monolith.Monolith) error {
	return pricingDI.GetBinanceProvider(mono.Services()).Close()
}
