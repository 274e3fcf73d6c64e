// Package di contains dependency injection tokens for the trading context.
package di

import (
	"github.com/fd1az/brl-arbitrage-bot/business/trading/app"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/infra/redisbus"
	"github.com/fd1az/brl-arbitrage-bot/internal/di"
	"github.com/fd1az/brl-arbitrage-bot/internal/notify"
)

// Public service tokens - exposed to other modules
var (
	Engine = di.NewToken[*app.Engine]("trading.Engine")
)

// Private dependency tokens - internal to trading module
var (
	Ledger   = di.NewToken[*domain.Ledger]("trading:ledger")
	Notifier = di.NewToken[*notify.Notifier]("trading:notifier")
	EventBus = di.NewToken[*redisbus.Bus]("trading:eventBus") // nil when redis is disabled
)

// Helper functions for type-safe access
func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetLedger(c di.ServiceRegistry) *domain.Ledger {
	return di.GetToken(c, Ledger)
}

func GetNotifier(c di.ServiceRegistry) *notify.Notifier {
	return di.GetToken(c, Notifier)
}

func GetEventBus(c di.ServiceRegistry) *redisbus.Bus {
	return di.GetToken(c, EventBus)
}
