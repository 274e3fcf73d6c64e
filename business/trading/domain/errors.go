// Package domain contains the ledger and trade lifecycle of the trading context.
package domain

import (
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

// Sentinels for errors.Is. AppError equality is by code.
var (
	ErrInsufficientBalance = apperror.New(apperror.CodeInsufficientBalance)
	ErrLegApplication      = apperror.New(apperror.CodeLegApplicationFailed)
	ErrPartialExecution    = apperror.New(apperror.CodePartialExecution)
	ErrPairStuck           = apperror.New(apperror.CodePairStuck)
	ErrIllegalTransition   = apperror.New(apperror.CodeIllegalStateTransition)
)

// NewInsufficientBalanceError reports that venue holds have of asset where
// need was required.
func NewInsufficientBalanceError(venue pricingDomain.Venue, asset string, have, need decimal.Decimal) error {
	return apperror.New(apperror.CodeInsufficientBalance,
		apperror.WithContextf("venue=%s asset=%s have=%s need=%s", venue, asset, have, need))
}

func legApplication(format string, args ...any) error {
	return apperror.New(apperror.CodeLegApplicationFailed, apperror.WithContextf(format, args...))
}
