// Package service composes stores, caches, the signal bus, and the payment
// rail into the competition settlement workflows.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// emitter publishes lifecycle events on the signal bus. Publish failures are
// logged and swallowed: events are observability, not state.
type emitter struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// emit publishes an event envelope on the given pub/sub channel and appends
// it to the matching durable stream.
func (e *emitter) emit(ctx context.Context, channel, eventType string, payload any) {
	if e.bus == nil {
		return
	}

	evt := domain.Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		At:      time.Now().UTC(),
		Payload: payload,
	}

	data, err := json.Marshal(evt)
	if err != nil {
		e.logger.WarnContext(ctx, "events: marshal failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := e.bus.Publish(ctx, channel, data); err != nil {
		e.logger.WarnContext(ctx, "events: publish failed",
			slog.String("channel", channel),
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}

	if err := e.bus.StreamAppend(ctx, "stream:"+channel, data); err != nil {
		e.logger.WarnContext(ctx, "events: stream append failed",
			slog.String("channel", channel),
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
