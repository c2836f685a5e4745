package runtime

import (
	"chatroom/contract"
	"chatroom/domain"
	"chatroom/domain/event"
	"chatroom/mocks"
	"chatroom/repositories"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventRelay_SendMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	t.Run("should persist first then fan out to every inbox subscriber", func(t *testing.T) {
		req := require.New(t)
		router := mocks.NewMockIRouter(ctrl)
		messages := mocks.NewMockIMessageRepository(ctrl)
		relay := NewEventRelay(log, router, messages)

		stored := repositories.DiskMessage{
			ID:       uuid.New(),
			Sender:   "alice",
			Receiver: "bob",
			Content:  "hi",
			At:       time.Now().UTC(),
		}
		messages.EXPECT().CreateMessage("alice", "bob", "hi").Return(stored, nil)

		expected := event.MessageReceived{
			To:      domain.PersonalRoom("bob"),
			Sender:  "alice",
			Content: "hi",
		}
		// One failing subscriber must not starve the other.
		failing := mocks.NewMockEventSink(ctrl)
		failing.EXPECT().Consume(gomock.Any(), expected).Return(errors.New("slow consumer"))
		healthy := mocks.NewMockEventSink(ctrl)
		healthy.EXPECT().Consume(gomock.Any(), expected).Return(nil)
		router.EXPECT().
			SinksFor(domain.PersonalRoom("bob")).
			Return([]contract.EventSink{failing, healthy})

		message, err := relay.SendMessage(context.Background(), "alice", "bob", "hi")

		req.NoError(err)
		req.Equal(stored.ID, message.ID)
		req.Equal("alice", message.SenderID)
		req.Equal("bob", message.ReceiverID)
		req.Equal("hi", message.Content)
	})

	t.Run("should suppress the relay entirely when persistence fails", func(t *testing.T) {
		req := require.New(t)
		// The router carries no expectations: a SinksFor call would fail the test.
		router := mocks.NewMockIRouter(ctrl)
		messages := mocks.NewMockIMessageRepository(ctrl)
		relay := NewEventRelay(log, router, messages)

		messages.EXPECT().
			CreateMessage("alice", "bob", "hi").
			Return(repositories.DiskMessage{}, errors.New("disk full"))

		_, err := relay.SendMessage(context.Background(), "alice", "bob", "hi")
		req.Error(err)
	})

	t.Run("should store the message even when the receiver is offline", func(t *testing.T) {
		req := require.New(t)
		router := mocks.NewMockIRouter(ctrl)
		messages := mocks.NewMockIMessageRepository(ctrl)
		relay := NewEventRelay(log, router, messages)

		stored := repositories.DiskMessage{ID: uuid.New(), Sender: "alice", Receiver: "bob", Content: "hi"}
		messages.EXPECT().CreateMessage("alice", "bob", "hi").Return(stored, nil)
		router.EXPECT().SinksFor(domain.PersonalRoom("bob")).Return(nil)

		message, err := relay.SendMessage(context.Background(), "alice", "bob", "hi")
		req.NoError(err)
		req.Equal(stored.ID, message.ID)
	})
}

func TestEventRelay_TypingIndicators(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	t.Run("should forward typing to the room subscribers", func(t *testing.T) {
		router := mocks.NewMockIRouter(ctrl)
		relay := NewEventRelay(log, router, mocks.NewMockIMessageRepository(ctrl))

		sink := mocks.NewMockEventSink(ctrl)
		sink.EXPECT().Consume(gomock.Any(), event.TypingStarted{To: "alice"}).Return(nil)
		router.EXPECT().SinksFor(domain.RoomID("alice")).Return([]contract.EventSink{sink})

		relay.Typing(context.Background(), "alice")
	})

	t.Run("should drop the indicator silently when the room is empty", func(t *testing.T) {
		router := mocks.NewMockIRouter(ctrl)
		relay := NewEventRelay(log, router, mocks.NewMockIMessageRepository(ctrl))

		router.EXPECT().SinksFor(domain.RoomID("alice")).Return(nil)
		relay.StopTyping(context.Background(), "alice")
	})
}
