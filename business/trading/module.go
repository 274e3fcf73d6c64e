// Package trading implements the trading bounded context: the simulated
// ledger and the execution engine.
package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/brl-arbitrage-bot/business/trading/app"
	tradingDI "github.com/fd1az/brl-arbitrage-bot/business/trading/di"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/infra/admin"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/infra/alert"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/infra/redisbus"
	"github.com/fd1az/brl-arbitrage-bot/internal/config"
	"github.com/fd1az/brl-arbitrage-bot/internal/di"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
	"github.com/fd1az/brl-arbitrage-bot/internal/monolith"
	"github.com/fd1az/brl-arbitrage-bot/internal/notify"
)

// Module implements the trading bounded context.
type Module struct{}

// RegisterServices registers all trading services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, tradingDI.Ledger, func(sr di.ServiceRegistry) *domain.Ledger {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)

		ledger, err := domain.NewLedger(cfg.Trading.InitialBalancesDecimal())
		if err != nil {
			panic("failed to create ledger: " + err.Error())
		}
		return ledger
	})

	di.RegisterToken(c, tradingDI.Notifier, func(sr di.ServiceRegistry) *notify.Notifier {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)

		senders, err := notifySenders(cfg.Notify)
		if err != nil {
			panic("failed to create notify senders: " + err.Error())
		}
		return notify.NewNotifier(senders, cfg.Notify.Events, log)
	})

	di.RegisterToken(c, tradingDI.EventBus, func(sr di.ServiceRegistry) *redisbus.Bus {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)
		if !cfg.Redis.Enabled {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		bus, err := redisbus.New(ctx, redisbus.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			Prefix:       cfg.Redis.Prefix,
			StreamMaxLen: cfg.Redis.StreamMaxLen,
		})
		if err != nil {
			// Trading goes on without the bus.
			log.Warn(ctx, "redis event bus unavailable", "addr", cfg.Redis.Addr, "error", err)
			return nil
		}
		return bus
	})

	// Engine (public - exposed to other modules)
	di.RegisterToken(c, tradingDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)

		var (
			alerters []app.Alerter
			sinks    []app.TradeSink
		)
		if n := tradingDI.GetNotifier(sr); n.Enabled() {
			na := alert.NewNotifier(n)
			alerters = append(alerters, na)
			sinks = append(sinks, na)
		}
		if bus := tradingDI.GetEventBus(sr); bus != nil {
			alerters = append(alerters, bus)
			sinks = append(sinks, bus)
		}

		retry := cfg.Execution.SellRetry
		engine, err := app.NewEngine(tradingDI.GetLedger(sr), app.EngineConfig{
			Amount: cfg.Trading.AmountDecimal(),
			SellRetry: app.RetryPolicy{
				MaxAttempts:     retry.MaxAttempts,
				InitialInterval: retry.InitialInterval,
				MaxInterval:     retry.MaxInterval,
				Multiplier:      retry.Multiplier,
			},
		}, alerters, sinks, log)
		if err != nil {
			panic("failed to create execution engine: " + err.Error())
		}
		return engine
	})

	return nil
}

func notifySenders(cfg config.NotifyConfig) ([]notify.Sender, error) {
	var senders []notify.Sender
	if cfg.DiscordWebhookURL != "" {
		s, err := notify.NewDiscordSender(cfg.DiscordWebhookURL)
		if err != nil {
			return nil, err
		}
		senders = append(senders, s)
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		s, err := notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		senders = append(senders, s)
	}
	return senders, nil
}

// Startup mounts the stuck-position admin routes and health checks.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	engine := tradingDI.GetEngine(mono.Services())

	admin.Routes(mono.Health(), engine)

	mono.Health().RegisterCheck("stuck_positions", func(context.Context) (bool, string) {
		stuck := engine.Stuck()
		if len(stuck) == 0 {
			return true, "none"
		}
		return false, fmt.Sprintf("%d stuck, oldest %s:%s since %s",
			len(stuck), stuck[0].Venue, stuck[0].Asset, stuck[0].Since.Format(time.RFC3339))
	})

	bus := tradingDI.GetEventBus(mono.Services())
	if bus != nil {
		mono.Health().RegisterCheck("redis", bus.Healthy)
	}

	snap := tradingDI.GetLedger(mono.Services()).Snapshot()
	log.Info(ctx, "trading module started",
		"amount", engine.Amount().String(),
		"balances", len(snap.Balances),
		"notify", tradingDI.GetNotifier(mono.Services()).Enabled(),
		"event_bus", bus != nil,
	)
	return nil
}

// Shutdown closes the event bus.
func (m *Module) Shutdown(mono monolith.Monolith) error {
	if bus := tradingDI.GetEventBus(mono.Services()); bus != nil {
		return bus.Close()
	}
	return nil
}
