// Package ratelimit turns venue request quotas into client-side pacing.
//
// Two tools live here: Limiter, a token bucket over golang.org/x/time/rate
// that guards individual HTTP calls, and Pacer, which stretches a whole
// detection cycle so that the requests it issues stay inside every venue's
// quota.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Quota is a venue allowance of MaxRequests per Window.
type Quota struct {
	MaxRequests int
	Window      time.Duration
}

// MinInterval is the smallest spacing between requests that respects the
// quota. A zero or malformed quota imposes no spacing.
func (q Quota) MinInterval() time.Duration {
	if q.MaxRequests <= 0 || q.Window <= 0 {
		return 0
	}
	return q.Window / time.Duration(q.MaxRequests)
}

// CycleFloor is the minimum cycle duration when every cycle sends
// requestsPerCheck requests to each of the given venues.
func CycleFloor(requestsPerCheck int, quotas ...Quota) time.Duration {
	var floor time.Duration
	for _, q := range quotas {
		if d := q.MinInterval() * time.Duration(requestsPerCheck); d > floor {
			floor = d
		}
	}
	return floor
}

// Limiter wraps rate.Limiter with convenience methods.
type Limiter struct {
	limiter *rate.Limiter
}

// NewFromQuota creates a limiter that spaces calls by q.MinInterval with no
// burst. A zero quota yields an unlimited limiter.
func NewFromQuota(q Quota) *Limiter {
	interval := q.MinInterval()
	if interval <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}

// Pacer enforces the cycle floor between scheduler iterations.
type Pacer struct {
	floor time.Duration
}

// NewPacer combines the configured cycle floor with the floor derived from
// the venue quotas. The larger of the two wins.
func NewPacer(configured time.Duration, requestsPerCheck int, quotas ...Quota) *Pacer {
	floor := CycleFloor(requestsPerCheck, quotas...)
	if configured > floor {
		floor = configured
	}
	return &Pacer{floor: floor}
}

// Floor returns the effective minimum cycle duration.
func (p *Pacer) Floor() time.Duration {
	return p.floor
}

// Remaining is how long to sleep after a cycle that took elapsed.
func (p *Pacer) Remaining(elapsed time.Duration) time.Duration {
	if elapsed >= p.floor {
		return 0
	}
	return p.floor - elapsed
}

// Wait sleeps out the rest of a cycle that began at started. It returns
// ctx.Err() if cancelled first.
func (p *Pacer) Wait(ctx context.Context, started time.Time) error {
	d := p.Remaining(time.Since(started))
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
