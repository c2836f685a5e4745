package ws

import (
	"chatroom/domain/event"
	"context"
	"log/slog"
)

// Sink buffers outbound events for a single connection.
type Sink struct {
	log    *slog.Logger
	Events chan event.DomainEvent
}

func NewSink(log *slog.Logger, bufferSize int) *Sink {
	return &Sink{log: log, Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the relay and the presence coordinator. It hands
// the event over to the connection's writer without ever blocking the
// caller: a full buffer drops the event, keeping fan-out to the other
// subscribers unaffected by one slow connection.
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Warn("Connection buffer full, dropping event", "room_id", e.Room())
		return nil
	}
}
