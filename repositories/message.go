//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chatroom/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	CreateMessage(sender, receiver, content string) (DiskMessage, error)
	GetConversation(userA, userB string, cursor *string) ([]DiskMessage, *string, error)
	DeleteMessage(id, requester string) error
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is the stored form of a chat message.
type DiskMessage struct {
	ID       uuid.UUID `json:"id"`
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Content  string    `json:"content"`
	At       time.Time `json:"at"`
}

// conversationKey is direction-independent: the two participant ids are
// sorted so that A->B and B->A messages share one prefix and a single
// scan returns the whole conversation.
func conversationKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + "|" + userB
}

// CreateMessage persists a message in BadgerDB.
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
//
// A secondary "msgid:{uuid}" entry points back at the primary key so a
// message can later be deleted by id alone.
func (m MessageRepository) CreateMessage(sender, receiver, content string) (DiskMessage, error) {
	message := DiskMessage{
		ID:       uuid.New(),
		Sender:   sender,
		Receiver: receiver,
		Content:  content,
		At:       time.Now().UTC(),
	}
	key := fmt.Sprintf("msg:%s:%019d:%s",
		conversationKey(sender, receiver),
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(message)
	if err != nil {
		return DiskMessage{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), bytes); err != nil {
			return err
		}
		return txn.Set([]byte("msgid:"+message.ID.String()), []byte(key))
	})
	if err != nil {
		return DiskMessage{}, err
	}
	return message, nil
}

// GetConversation retrieves the messages exchanged between two users,
// newest first, using a reverse prefix scan. Thanks to the padded
// timestamp in the key the scan is naturally sorted by time. A cursor from
// a previous call resumes the scan right after the last returned key, and
// collection stops once the configured limitMessages is reached.
func (m MessageRepository) GetConversation(userA, userB string, cursor *string) ([]DiskMessage, *string, error) {
	var diskMessages []DiskMessage
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", conversationKey(userA, userB))
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(diskMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				var message DiskMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				diskMessages = append(diskMessages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return diskMessages, &lastKey, nil
}

// DeleteMessage removes a message and its id index. Only the original
// sender is allowed to delete it.
func (m MessageRepository) DeleteMessage(id, requester string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		indexKey := []byte("msgid:" + id)
		item, err := txn.Get(indexKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrMessageNotFound
			}
			return err
		}
		var primaryKey []byte
		if err = item.Value(func(val []byte) error {
			primaryKey = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}

		record, err := txn.Get(primaryKey)
		if err != nil {
			return errors.ErrMessageNotFound
		}
		var message DiskMessage
		if err = record.Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		}); err != nil {
			return err
		}
		if !strings.EqualFold(message.Sender, requester) {
			return errors.ErrNotMessageSender
		}

		if err = txn.Delete(primaryKey); err != nil {
			return err
		}
		return txn.Delete(indexKey)
	})
}
