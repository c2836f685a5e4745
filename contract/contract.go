//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatroom/domain"
	"chatroom/domain/event"
	"context"
)

// EventSink is the outbound side of one live connection.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the sole source of truth for "is this user online".
type IRegistry interface {
	Register(user domain.UserID, conn domain.ConnID)
	// Deregister reports true when the user's last connection was removed.
	Deregister(user domain.UserID, conn domain.ConnID) bool
	IsOnline(user domain.UserID) bool
}

// IRouter maps rooms to the connections subscribed to them and resolves
// connections to their sinks.
type IRouter interface {
	Bind(conn domain.ConnID, sink EventSink)
	Subscribe(room domain.RoomID, conn domain.ConnID)
	Unsubscribe(room domain.RoomID, conn domain.ConnID)
	UnsubscribeAll(conn domain.ConnID)
	MembersOf(room domain.RoomID) []domain.ConnID
	SinksFor(room domain.RoomID) []EventSink
	SinkOf(conn domain.ConnID) (EventSink, bool)
}
