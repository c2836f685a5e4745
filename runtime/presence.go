package runtime

import (
	"chatroom/contract"
	"chatroom/domain"
	"chatroom/domain/event"
	"chatroom/repositories"
	"context"
	"log/slog"
	"sync"
	"time"
)

// PresenceCoordinator drives the connect/disconnect lifecycle of every
// connection: registration in the ConnectionRegistry, auto-subscription to
// the personal inbox room, explicit room joins, and the durable last-seen
// update once a user's last connection is gone.
type PresenceCoordinator struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry contract.IRegistry
	router   contract.IRouter
	users    repositories.IUserRepository

	// identities remembers which user a tracked connection belongs to so
	// the disconnect path does not depend on the transport resupplying it.
	identities map[domain.ConnID]domain.UserID
}

func NewPresenceCoordinator(log *slog.Logger, registry contract.IRegistry,
	router contract.IRouter, users repositories.IUserRepository) *PresenceCoordinator {
	return &PresenceCoordinator{
		log:        log,
		registry:   registry,
		router:     router,
		users:      users,
		identities: make(map[domain.ConnID]domain.UserID),
	}
}

// Connect registers a freshly opened connection. A connection arriving
// with an empty user identity is accepted but stays anonymous: it is bound
// for delivery and may join explicit rooms, yet never appears online and
// never triggers a last-seen update.
func (p *PresenceCoordinator) Connect(user domain.UserID, conn domain.ConnID, sink contract.EventSink) {
	p.router.Bind(conn, sink)
	if user == "" {
		p.log.Debug("Anonymous connection accepted", "conn_id", conn)
		return
	}

	p.mu.Lock()
	p.identities[conn] = user
	p.mu.Unlock()

	p.registry.Register(user, conn)
	p.router.Subscribe(domain.PersonalRoom(user), conn)
	p.log.Info("Connection registered", "user_id", user, "conn_id", conn)
}

// Join subscribes the connection to an arbitrary room, independent of
// presence tracking, and acknowledges the join back to the requesting
// connection only.
func (p *PresenceCoordinator) Join(ctx context.Context, conn domain.ConnID, room domain.RoomID) {
	p.router.Subscribe(room, conn)
	sink, ok := p.router.SinkOf(conn)
	if !ok {
		return
	}
	if err := sink.Consume(ctx, event.RoomJoined{RoomID: room}); err != nil {
		p.log.Warn("Join acknowledgment failed", "conn_id", conn, "room_id", room, "error", err)
	}
}

// Disconnect tears a connection down: every room subscription is dropped,
// then, if the connection was tracked for presence and was the user's last
// one, a last-seen update is queued against the store. The write is
// fire-and-forget: its failure is logged and never delays or fails the
// disconnect itself. Disconnecting an unknown connection is a harmless
// no-op.
func (p *PresenceCoordinator) Disconnect(conn domain.ConnID) {
	p.router.UnsubscribeAll(conn)

	p.mu.Lock()
	user, tracked := p.identities[conn]
	delete(p.identities, conn)
	p.mu.Unlock()

	if !tracked {
		return
	}
	if becameOffline := p.registry.Deregister(user, conn); !becameOffline {
		p.log.Debug("Connection closed, user still online", "user_id", user, "conn_id", conn)
		return
	}

	p.log.Info("User went offline", "user_id", user)
	go func() {
		if err := p.users.UpdateLastSeen(string(user), time.Now().UTC()); err != nil {
			p.log.Error("Last-seen update failed", "user_id", user, "error", err)
		}
	}()
}

// IsOnline exposes derived presence for read-side consumers.
func (p *PresenceCoordinator) IsOnline(user domain.UserID) bool {
	return p.registry.IsOnline(user)
}
