package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat message between two users.
// Its lifecycle is owned by the durable store; the relay only triggers
// its creation.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	Content    string
	CreatedAt  time.Time
}
