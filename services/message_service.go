package services

import (
	"chatroom/domain"
	"chatroom/repositories"
	"chatroom/runtime"
	"context"

	"github.com/samber/lo"
)

type IMessageService interface {
	Send(ctx context.Context, senderID, receiverID, content string) (domain.Message, error)
	History(userID, peerID string, cursor *string) ([]domain.Message, *string, error)
	Delete(messageID, requesterID string) error
}

// MessageService fronts the durable message store. Send goes through the
// relay so the HTTP path and the websocket path share the same
// persist-then-relay semantics.
type MessageService struct {
	relay    *runtime.EventRelay
	messages repositories.IMessageRepository
}

func NewMessageService(relay *runtime.EventRelay, messages repositories.IMessageRepository) *MessageService {
	return &MessageService{relay: relay, messages: messages}
}

func (s *MessageService) Send(ctx context.Context, senderID, receiverID, content string) (domain.Message, error) {
	return s.relay.SendMessage(ctx, domain.UserID(senderID), domain.UserID(receiverID), content)
}

func (s *MessageService) History(userID, peerID string, cursor *string) ([]domain.Message, *string, error) {
	messages, next, err := s.messages.GetConversation(userID, peerID, cursor)
	if err != nil {
		return nil, nil, err
	}
	return fromDiskMessages(messages), next, nil
}

func (s *MessageService) Delete(messageID, requesterID string) error {
	return s.messages.DeleteMessage(messageID, requesterID)
}

func fromDiskMessages(messages []repositories.DiskMessage) []domain.Message {
	return lo.Map(messages, func(item repositories.DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:         item.ID,
			SenderID:   item.Sender,
			ReceiverID: item.Receiver,
			Content:    item.Content,
			CreatedAt:  item.At,
		}
	})
}
