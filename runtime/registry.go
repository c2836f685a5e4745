package runtime

import (
	"chatroom/domain"
	"sync"
)

type Set map[domain.ConnID]struct{}

// ConnectionRegistry maps a user to the set of live connections currently
// representing them. A user appears in the map if and only if at least one
// connection is live: presence is always derived from the live connection
// count, never from a client-provided flag.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	users map[domain.UserID]Set
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{users: make(map[domain.UserID]Set)}
}

// Register adds conn to the user's connection set, creating the set on the
// user's first connection. Registering an already present conn is a no-op.
func (r *ConnectionRegistry) Register(user domain.UserID, conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user]; !ok {
		r.users[user] = make(Set)
	}
	r.users[user][conn] = struct{}{}
}

// Deregister removes conn from the user's set and reports whether the user
// just went offline (last connection removed). Unknown users and unknown
// connections are tolerated as no-ops so duplicate or out-of-order
// disconnect notifications never produce a spurious offline signal.
func (r *ConnectionRegistry) Deregister(user domain.UserID, conn domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, ok := r.users[user]
	if !ok {
		return false
	}
	if _, ok = conns[conn]; !ok {
		return false
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(r.users, user)
		return true
	}
	return false
}

// IsOnline reports whether the user has at least one live connection.
func (r *ConnectionRegistry) IsOnline(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[user]) > 0
}
