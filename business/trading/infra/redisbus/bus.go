// Package redisbus publishes trade lifecycle events to Redis. Terminal trades
// and stuck alerts go out over Pub/Sub; stuck alerts are also appended to a
// capped stream so an operator tool can replay them.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/brl-arbitrage-bot/business/trading/app"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

var (
	_ app.TradeSink = (*Bus)(nil)
	_ app.Alerter   = (*Bus)(nil)
)

const defaultStreamMaxLen int64 = 10000

// Config holds connection and naming settings.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string // channel/stream prefix, default "arb"
	StreamMaxLen int64  // approximate XADD MAXLEN
}

// Bus is the Redis-backed trade event publisher.
type Bus struct {
	rdb    *redis.Client
	prefix string
	maxLen int64
}

// New connects and pings Redis.
func New(ctx context.Context, cfg Config) (*Bus, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "arb"
	}
	if cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = defaultStreamMaxLen
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperror.New(apperror.CodeEventPublishFailed,
			apperror.WithContextf("redis ping %s", cfg.Addr), apperror.WithCause(err))
	}

	return &Bus{rdb: rdb, prefix: cfg.Prefix, maxLen: cfg.StreamMaxLen}, nil
}

// TradesChannel is the Pub/Sub channel for terminal trades.
func (b *Bus) TradesChannel() string { return b.prefix + ":trades" }

// AlertsChannel is the Pub/Sub channel for stuck alerts.
func (b *Bus) AlertsChannel() string { return b.prefix + ":alerts" }

// StuckStream is the stream stuck alerts are appended to.
func (b *Bus) StuckStream() string { return b.prefix + ":stuck" }

// Publish sends a terminal trade to the trades channel.
func (b *Bus) Publish(ctx context.Context, trade *domain.Trade) error {
	payload, err := json.Marshal(NewTradeEvent(trade))
	if err != nil {
		return apperror.New(apperror.CodeEventPublishFailed, apperror.WithCause(err))
	}
	return b.publish(ctx, b.TradesChannel(), payload)
}

// Alert publishes a stuck position and appends it to the stuck stream.
func (b *Bus) Alert(ctx context.Context, pos domain.StuckPosition, trade *domain.Trade) error {
	payload, err := json.Marshal(StuckEvent{
		StuckPosition: pos,
		Symbol:        pos.Symbol.String(),
		Trade:         NewTradeEvent(trade),
	})
	if err != nil {
		return apperror.New(apperror.CodeEventPublishFailed, apperror.WithCause(err))
	}

	if err := b.publish(ctx, b.AlertsChannel(), payload); err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: b.StuckStream(),
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]any{
			"venue":   string(pos.Venue),
			"held_on": string(pos.HeldOn),
			"asset":   pos.Asset,
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return apperror.New(apperror.CodeEventPublishFailed,
			apperror.WithContextf("xadd %s", b.StuckStream()), apperror.WithCause(err))
	}
	return nil
}

func (b *Bus) publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return apperror.New(apperror.CodeEventPublishFailed,
			apperror.WithContextf("publish %s", channel), apperror.WithCause(err))
	}
	return nil
}

// Healthy pings Redis with a short timeout.
func (b *Bus) Healthy(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := b.rdb.Ping(ctx).Err(); err != nil {
		return false, fmt.Sprintf("redis: %v", err)
	}
	return true, "ok"
}

// Close closes the connection pool.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
