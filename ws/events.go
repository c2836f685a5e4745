package ws

import "encoding/json"

// Named events of the wire contract. Names are part of the protocol and
// must not change.
const (
	EventJoin           = "join"
	EventRoomJoined     = "room_joined"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
)

// Inbound is the envelope from client to server.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope server -> client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// JoinPayload subscribes the connection to a room.
type JoinPayload struct {
	RoomID string `json:"roomId"`
}

// RoomJoinedPayload acknowledges a join back to the requester.
type RoomJoinedPayload struct {
	RoomID string `json:"roomId"`
}

// SendMessagePayload carries one chat message towards a receiver.
type SendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

// ReceiveMessagePayload is what the receiver's connections get.
type ReceiveMessagePayload struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// TypingPayload targets a typing indicator; the outbound counterpart has
// no payload at all.
type TypingPayload struct {
	To string `json:"to"`
}
