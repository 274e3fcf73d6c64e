// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/brl-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/brl-arbitrage-bot/business/pricing/infra/binance"
	"github.com/fd1az/brl-arbitrage-bot/business/pricing/infra/bitpreco"
	"github.com/fd1az/brl-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	QuoteService = di.NewToken[*app.QuoteService]("pricing.QuoteService")
)

// Private dependency tokens - internal to pricing module
var (
	BitprecoProvider = di.NewToken[*bitpreco.Provider]("pricing:bitprecoProvider")
	BinanceProvider  = di.NewToken[*binance.Provider]("pricing:binanceProvider")
)

// Helper functions for type-safe access
func GetQuoteService(c di.ServiceRegistry) *app.QuoteService {
	return di.GetToken(c, QuoteService)
}

func GetBitprecoProvider(c di.ServiceRegistry) *bitpreco.Provider {
	return di.GetToken(c, BitprecoProvider)
}

func GetBinanceProvider(c di.ServiceRegistry) *binance.Provider {
	return di.GetToken(c, BinanceProvider)
}
