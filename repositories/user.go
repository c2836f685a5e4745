//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chatroom/errors"
	"encoding/json"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// DefaultAvatarURL is assigned to every new profile until the user
// uploads their own picture.
const DefaultAvatarURL = "https://yourdomain.com/default-profile.png"

type IUserRepository interface {
	CreateUser(username, email, hashedPassword string) (User, error)
	GetByID(id string) (User, error)
	GetByUsername(username string) (User, error)
	UpdateLastSeen(id string, at time.Time) error
	SetFriends(id string, friendIDs []string) error
	SearchByPrefix(prefix string, limit int) ([]User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the stored form of a profile. LastSeen is written by the
// presence layer when a user's last connection closes.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	AvatarURL    string    `json:"avatarUrl"`
	Friends      []string  `json:"friends"`
	LastSeen     time.Time `json:"lastSeen"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Records live under "user:{id}". A "uname:{username}" index maps the
// lowercased unique username back to the id, which doubles as the ordered
// keyspace for prefix search.
func userKey(id string) []byte { return []byte("user:" + id) }

func usernameKey(username string) []byte {
	return []byte("uname:" + strings.ToLower(username))
}

// CreateUser persists a new profile. The username must be unique.
func (u UserRepository) CreateUser(username, email, hashedPassword string) (User, error) {
	now := time.Now().UTC()
	user := User{
		ID:           uuid.New().String(),
		Username:     strings.ToLower(username),
		Email:        strings.ToLower(email),
		PasswordHash: hashedPassword,
		AvatarURL:    DefaultAvatarURL,
		LastSeen:     now,
		CreatedAt:    now,
	}

	data, err := json.Marshal(user)
	if err != nil {
		return User{}, err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		nameKey := usernameKey(user.Username)
		if _, err := txn.Get(nameKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(nameKey, []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (u UserRepository) GetByID(id string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		return loadUser(txn, id, &user)
	})
	return user, err
}

func (u UserRepository) GetByUsername(username string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrUserNotFound
			}
			return err
		}
		var id string
		if err = item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return loadUser(txn, id, &user)
	})
	return user, err
}

// UpdateLastSeen stamps the moment the user's last connection closed.
// The presence layer treats this write as fire-and-forget: errors are
// reported to the caller for logging only.
func (u UserRepository) UpdateLastSeen(id string, at time.Time) error {
	return u.mutate(id, func(user *User) {
		user.LastSeen = at.UTC()
	})
}

// SetFriends replaces the user's friend list.
func (u UserRepository) SetFriends(id string, friendIDs []string) error {
	return u.mutate(id, func(user *User) {
		user.Friends = friendIDs
	})
}

// mutate performs a read-modify-write of one profile in a single
// transaction.
func (u UserRepository) mutate(id string, fn func(*User)) error {
	return u.db.Update(func(txn *badger.Txn) error {
		var user User
		if err := loadUser(txn, id, &user); err != nil {
			return err
		}
		fn(&user)
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
}

// SearchByPrefix returns up to limit users whose username starts with
// prefix, in username order. The username index keyspace is ordered, so a
// plain prefix scan serves the query.
func (u UserRepository) SearchByPrefix(prefix string, limit int) ([]User, error) {
	var users []User
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		scanPrefix := usernameKey(prefix)
		for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
			if limit > 0 && len(users) == limit {
				break
			}
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			var user User
			if err := loadUser(txn, id, &user); err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	return users, err
}

func loadUser(txn *badger.Txn, id string, user *User) error {
	item, err := txn.Get(userKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, user)
	})
}
