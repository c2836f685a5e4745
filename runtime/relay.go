package runtime

import (
	"chatroom/contract"
	"chatroom/domain"
	"chatroom/domain/event"
	"chatroom/repositories"
	"context"
	"log/slog"
)

// EventRelay forwards inbound application events to every connection
// subscribed to the target room. Delivery is best-effort and online-only:
// nothing is queued or retried, and a failing subscriber never blocks or
// aborts delivery to the others.
type EventRelay struct {
	log      *slog.Logger
	router   contract.IRouter
	messages repositories.IMessageRepository
}

func NewEventRelay(log *slog.Logger, router contract.IRouter,
	messages repositories.IMessageRepository) *EventRelay {
	return &EventRelay{log: log, router: router, messages: messages}
}

// SendMessage durably stores the message first and only then fans a
// receive_message event out to the receiver's inbox room. When the store
// rejects the write the relay is suppressed entirely: an unpersisted
// message reaching one client but missing from history would be a visible
// inconsistency. The receiver having zero live connections is normal; the
// message is stored and the fan-out is empty.
func (r *EventRelay) SendMessage(ctx context.Context, sender, receiver domain.UserID, content string) (domain.Message, error) {
	stored, err := r.messages.CreateMessage(string(sender), string(receiver), content)
	if err != nil {
		r.log.Error("Message persistence failed, relay suppressed",
			"sender_id", sender, "receiver_id", receiver, "error", err)
		return domain.Message{}, err
	}

	r.fanout(ctx, event.MessageReceived{
		To:      domain.PersonalRoom(receiver),
		Sender:  sender,
		Content: content,
	})
	return toMessage(stored), nil
}

// Typing forwards a typing indicator to the target room. No durable side
// effect: with no subscriber the event is silently dropped.
func (r *EventRelay) Typing(ctx context.Context, to domain.RoomID) {
	r.fanout(ctx, event.TypingStarted{To: to})
}

// StopTyping forwards the end of a typing indicator to the target room.
func (r *EventRelay) StopTyping(ctx context.Context, to domain.RoomID) {
	r.fanout(ctx, event.TypingStopped{To: to})
}

// fanout delivers one event to each subscriber independently. Per-sink
// failures are logged and isolated.
func (r *EventRelay) fanout(ctx context.Context, e event.DomainEvent) {
	for _, sink := range r.router.SinksFor(e.Room()) {
		if err := sink.Consume(ctx, e); err != nil {
			r.log.Warn("Event delivery failed", "room_id", e.Room(), "error", err)
		}
	}
}

func toMessage(m repositories.DiskMessage) domain.Message {
	return domain.Message{
		ID:         m.ID,
		SenderID:   m.Sender,
		ReceiverID: m.Receiver,
		Content:    m.Content,
		CreatedAt:  m.At,
	}
}
