package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	arbDomain "github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

// State is the lifecycle state of one execution attempt.
type State string

const (
	StateIdle        State = "idle"
	StateBuyPending  State = "buy_pending"
	StateBought      State = "bought"
	StateSellPending State = "sell_pending"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateStuck       State = "stuck"
)

var transitions = map[State][]State{
	StateIdle:        {StateBuyPending},
	StateBuyPending:  {StateBought, StateFailed},
	StateBought:      {StateSellPending},
	StateSellPending: {StateCompleted, StateStuck},
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateStuck
}

// Transition records one state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Trade is one attempt to execute an opportunity. It is never persisted.
type Trade struct {
	ID           string
	Opportunity  *arbDomain.Opportunity
	Amount       decimal.Decimal // quote asset spent on the buy leg
	State        State
	BaseQuantity decimal.Decimal // credited by the buy leg
	Proceeds     decimal.Decimal // credited by the sell leg
	SellAttempts int
	History      []Transition
	Err          error
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NewTrade starts an Idle trade for opp.
func NewTrade(opp *arbDomain.Opportunity, amount decimal.Decimal) *Trade {
	return &Trade{
		ID:          uuid.NewString(),
		Opportunity: opp,
		Amount:      amount,
		State:       StateIdle,
		StartedAt:   time.Now(),
	}
}

// TransitionTo moves the trade to next, rejecting moves the lifecycle does
// not allow.
func (t *Trade) TransitionTo(next State) error {
	if !slices.Contains(transitions[t.State], next) {
		return apperror.New(apperror.CodeIllegalStateTransition,
			apperror.WithContextf("trade=%s %s -> %s", t.ID, t.State, next))
	}

	now := time.Now()
	t.History = append(t.History, Transition{From: t.State, To: next, At: now})
	t.State = next
	if next.IsTerminal() {
		t.FinishedAt = now
	}
	return nil
}

// Profit is proceeds minus amount for a completed trade, zero otherwise.
func (t *Trade) Profit() decimal.Decimal {
	if t.State != StateCompleted {
		return decimal.Zero
	}
	return t.Proceeds.Sub(t.Amount)
}
