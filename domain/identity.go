// Package domain contains core concepts of the presence and relay system.
// No runtime, network, or UI logic should be added here.
package domain

// UserID is the opaque stable identity supplied by the authentication
// layer or by the connection handshake. The presence core only references
// it; it never creates or destroys users.
type UserID string

// ConnID identifies a single live connection. It is assigned by the
// transport when the connection opens and is invalid once it closes.
type ConnID string

// RoomID names a delivery group of connections. A user's personal inbox is
// the room whose id equals the UserID; ad-hoc rooms are any other
// caller-chosen string. There is no structural difference between the two.
type RoomID string

// PersonalRoom returns the implicit inbox room of a user.
func PersonalRoom(user UserID) RoomID {
	return RoomID(user)
}
