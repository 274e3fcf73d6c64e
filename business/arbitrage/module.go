// Package arbitrage implements the arbitrage bounded context: fee-adjusted
// opportunity detection and the scheduler loop that drives execution.
package arbitrage

import (
	"context"
	"os"

	"github.com/shopspring/decimal"

	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/brl-arbitrage-bot/business/arbitrage/di"
	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/infra"
	pricingDI "github.com/fd1az/brl-arbitrage-bot/business/pricing/di"
	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	tradingDI "github.com/fd1az/brl-arbitrage-bot/business/trading/di"
	"github.com/fd1az/brl-arbitrage-bot/internal/config"
	"github.com/fd1az/brl-arbitrage-bot/internal/di"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
	"github.com/fd1az/brl-arbitrage-bot/internal/monolith"
	"github.com/fd1az/brl-arbitrage-bot/internal/ratelimit"
	"github.com/fd1az/brl-arbitrage-bot/pkg/ui"
)

// requestsPerCheck is one quote request per venue.
const requestsPerCheck = 2

// Module implements the arbitrage bounded context.
type Module struct{}

func quota(rl config.RateLimitConfig) ratelimit.Quota {
	return ratelimit.Quota{MaxRequests: rl.MaxRequests, Window: rl.Window}
}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *domain.Detector {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)

		fees, err := domain.NewFeeModel(map[pricingDomain.Venue]decimal.Decimal{
			pricingDomain.VenueBitpreco: cfg.Venues.Bitpreco.FeeDecimal(),
			pricingDomain.VenueBinance:  cfg.Venues.Binance.FeeDecimal(),
		})
		if err != nil {
			panic("invalid venue fees: " + err.Error())
		}
		policy, err := domain.ParseSelectionPolicy(cfg.Trading.Selection)
		if err != nil {
			panic("invalid selection policy: " + err.Error())
		}
		detector, err := domain.NewDetector(fees, cfg.Trading.MinProfitDecimal(), policy)
		if err != nil {
			panic("failed to create detector: " + err.Error())
		}
		return detector
	})

	di.RegisterToken(c, arbitrageDI.Pacer, func(sr di.ServiceRegistry) *ratelimit.Pacer {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		return ratelimit.NewPacer(cfg.Trading.CycleFloor, requestsPerCheck,
			quota(cfg.Venues.Bitpreco.RateLimit),
			quota(cfg.Venues.Binance.RateLimit),
		)
	})

	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		if cfg.App.TUIMode {
			return infra.NewTUIReporter(nil)
		}
		return infra.NewConsoleReporter(os.Stdout)
	})

	// Scheduler (public - exposed to other modules)
	di.RegisterToken(c, arbitrageDI.Scheduler, func(sr di.ServiceRegistry) *app.Scheduler {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)

		symbols, err := pricingDomain.ParseSymbols(cfg.Trading.Symbols)
		if err != nil {
			panic("invalid trading symbols: " + err.Error())
		}

		scheduler, err := app.NewScheduler(
			pricingDI.GetQuoteService(sr),
			arbitrageDI.GetDetector(sr),
			tradingDI.GetEngine(sr),
			arbitrageDI.GetReporter(sr),
			arbitrageDI.GetPacer(sr),
			app.SchedulerConfig{Symbols: symbols, TradingEnabled: cfg.Trading.Enabled},
			log,
		)
		if err != nil {
			panic("failed to create scheduler: " + err.Error())
		}
		return scheduler
	})

	return nil
}

// Startup starts the scheduler loop and hooks the TUI pause key to it.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	scheduler := arbitrageDI.GetScheduler(mono.Services())
	detector := arbitrageDI.GetDetector(mono.Services())
	pacer := arbitrageDI.GetPacer(mono.Services())

	if cfg.App.TUIMode {
		ui.OnToggleTrading = scheduler.SetTradingEnabled
		ui.Send(ui.TradingStateMsg{Enabled: scheduler.TradingEnabled()})
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	log.Info(ctx, "arbitrage module started",
		"symbols", cfg.Trading.Symbols,
		"min_profit", detector.MinProfit().String(),
		"selection", string(detector.Policy()),
		"cycle_floor", pacer.Floor().String(),
		"trading", scheduler.TradingEnabled(),
	)
	return nil
}

// Shutdown stops the scheduler loop.
func (m *Module) Shutdown(mono monolith.Monolith) error {
	return arbitrageDI.GetScheduler(mono.Services()).Stop()
}
