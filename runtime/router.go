package runtime

import (
	"chatroom/contract"
	"chatroom/domain"
	"sync"
)

// RoomRouter maps a room to the set of connections subscribed to it.
// It keeps a reverse index (connection -> rooms) so that a closing
// connection can be removed from every room it joined without scanning
// the whole table, and a sink directory resolving connection ids to their
// outbound side. Empty room sets are removed eagerly to avoid leaking
// entries for rooms nobody listens to anymore.
type RoomRouter struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]Set
	conns map[domain.ConnID]map[domain.RoomID]struct{}
	sinks map[domain.ConnID]contract.EventSink
}

func NewRoomRouter() *RoomRouter {
	return &RoomRouter{
		rooms: make(map[domain.RoomID]Set),
		conns: make(map[domain.ConnID]map[domain.RoomID]struct{}),
		sinks: make(map[domain.ConnID]contract.EventSink),
	}
}

// Bind associates a connection with its sink. It must be called before the
// connection subscribes to any room.
func (r *RoomRouter) Bind(conn domain.ConnID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[conn] = sink
}

// Subscribe adds conn to the room's subscriber set, creating the room on
// first subscription.
func (r *RoomRouter) Subscribe(room domain.RoomID, conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(Set)
	}
	r.rooms[room][conn] = struct{}{}
	if _, ok := r.conns[conn]; !ok {
		r.conns[conn] = make(map[domain.RoomID]struct{})
	}
	r.conns[conn][room] = struct{}{}
}

// Unsubscribe removes conn from a single room. Unknown rooms and
// connections are no-ops.
func (r *RoomRouter) Unsubscribe(room domain.RoomID, conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(room, conn)
}

// UnsubscribeAll removes conn from every room it joined and drops its sink
// binding. Invoked on disconnect so a connection that closes without an
// explicit unsubscribe never lingers in any room.
func (r *RoomRouter) UnsubscribeAll(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.conns[conn] {
		if members, ok := r.rooms[room]; ok {
			delete(members, conn)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.conns, conn)
	delete(r.sinks, conn)
}

func (r *RoomRouter) removeLocked(room domain.RoomID, conn domain.ConnID) {
	if members, ok := r.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.conns[conn]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.conns, conn)
		}
	}
}

// MembersOf returns the current subscriber set of a room. An unknown room
// yields an empty result, not an error.
func (r *RoomRouter) MembersOf(room domain.RoomID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	if len(members) == 0 {
		return nil
	}
	result := make([]domain.ConnID, 0, len(members))
	for conn := range members {
		result = append(result, conn)
	}
	return result
}

// SinksFor resolves the room's subscribers to their sinks. A member whose
// sink binding is already gone is skipped.
func (r *RoomRouter) SinksFor(room domain.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for conn := range members {
		if sink, exists := r.sinks[conn]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// SinkOf returns the sink bound to a single connection.
func (r *RoomRouter) SinkOf(conn domain.ConnID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[conn]
	return sink, ok
}
