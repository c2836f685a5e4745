package event

import "chatroom/domain"

// DomainEvent is anything the relay can fan out to the connections
// subscribed to its target room.
type DomainEvent interface {
	Room() domain.RoomID
}

// MessageReceived is delivered to the receiver's inbox room once the
// message has been durably stored.
type MessageReceived struct {
	To      domain.RoomID
	Sender  domain.UserID
	Content string
}

func (e MessageReceived) Room() domain.RoomID { return e.To }

// TypingStarted signals that the peer started typing. Purely transient:
// no payload, no durability, silently dropped when nobody is subscribed.
type TypingStarted struct {
	To domain.RoomID
}

func (e TypingStarted) Room() domain.RoomID { return e.To }

// TypingStopped signals that the peer stopped typing.
type TypingStopped struct {
	To domain.RoomID
}

func (e TypingStopped) Room() domain.RoomID { return e.To }

// RoomJoined acknowledges an explicit join back to the requesting
// connection so the caller can confirm membership before sending.
type RoomJoined struct {
	RoomID domain.RoomID
}

func (e RoomJoined) Room() domain.RoomID { return e.RoomID }
