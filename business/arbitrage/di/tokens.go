// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/di"
	"github.com/fd1az/brl-arbitrage-bot/internal/ratelimit"
)

// Public service tokens - exposed to other modules
var (
	Scheduler = di.NewToken[*app.Scheduler]("arbitrage.Scheduler")
)

// Private dependency tokens - internal to arbitrage module
var (
	Detector = di.NewToken[*domain.Detector]("arbitrage:detector")
	Pacer    = di.NewToken[*ratelimit.Pacer]("arbitrage:pacer")
	Reporter = di.NewToken[app.Reporter]("arbitrage:reporter")
)

// Helper functions for type-safe access
func GetScheduler(c di.ServiceRegistry) *app.Scheduler {
	return di.GetToken(c, Scheduler)
}

func GetDetector(c di.ServiceRegistry) *domain.Detector {
	return di.GetToken(c, Detector)
}

func GetPacer(c di.ServiceRegistry) *ratelimit.Pacer {
	return di.GetToken(c, Pacer)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
