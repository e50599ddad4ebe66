package domain

import (
	"context"
	"time"
)

// CompetitionCache provides fast competition metadata lookups.
type CompetitionCache interface {
	Set(ctx context.Context, c Competition) error
	Get(ctx context.Context, id int64) (Competition, error)
	Invalidate(ctx context.Context, id int64) error
}

// RateLimiter provides distributed rate limiting (join/submit endpoints).
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking. Finalization takes a per-
// competition lock as its first line of defense; the store's conditional
// update is the second.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams for lifecycle events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
