package services

import (
	"chatroom/contract"
	"chatroom/domain"
	"chatroom/errors"
	"chatroom/repositories"
	"strings"
	"time"

	"github.com/samber/lo"
)

type IFriendService interface {
	Add(userID, usernameToAdd string) (Friend, error)
	Remove(userID, usernameToRemove string) error
	List(userID string) ([]Friend, error)
	Search(userID, query string) ([]Friend, error)
	Get(friendID string) (FriendProfile, error)
}

// Friend is the trimmed view of another user exposed by friend listings.
type Friend struct {
	ID       string
	Username string
	Email    string
}

// FriendProfile is the detail view of a single friend. IsOnline is derived
// from the live connection registry and LastSeen from the durable store,
// the read side of what the presence layer writes.
type FriendProfile struct {
	ID        string
	Username  string
	AvatarURL string
	LastSeen  time.Time
	IsOnline  bool
}

type FriendService struct {
	userRepository repositories.IUserRepository
	registry       contract.IRegistry
	searchLimit    int
}

func NewFriendService(repo repositories.IUserRepository, registry contract.IRegistry,
	searchLimit int) IFriendService {
	return &FriendService{userRepository: repo, registry: registry, searchLimit: searchLimit}
}

// Add creates a mutual friendship between the caller and the named user.
func (s *FriendService) Add(userID, usernameToAdd string) (Friend, error) {
	current, err := s.userRepository.GetByID(userID)
	if err != nil {
		return Friend{}, err
	}
	if strings.EqualFold(usernameToAdd, current.Username) {
		return Friend{}, errors.ErrSelfFriend
	}

	target, err := s.userRepository.GetByUsername(usernameToAdd)
	if err != nil {
		return Friend{}, err
	}
	if lo.Contains(current.Friends, target.ID) {
		return Friend{}, errors.ErrAlreadyFriends
	}

	if err = s.userRepository.SetFriends(current.ID, append(current.Friends, target.ID)); err != nil {
		return Friend{}, err
	}
	if err = s.userRepository.SetFriends(target.ID, append(target.Friends, current.ID)); err != nil {
		return Friend{}, err
	}
	return toFriend(target), nil
}

// Remove deletes the friendship edge on both sides.
func (s *FriendService) Remove(userID, usernameToRemove string) error {
	current, err := s.userRepository.GetByID(userID)
	if err != nil {
		return err
	}
	if strings.EqualFold(usernameToRemove, current.Username) {
		return errors.ErrSelfFriend
	}

	target, err := s.userRepository.GetByUsername(usernameToRemove)
	if err != nil {
		return err
	}

	keepOthers := func(other string) func(string, int) bool {
		return func(id string, _ int) bool { return id != other }
	}
	if err = s.userRepository.SetFriends(current.ID,
		lo.Filter(current.Friends, keepOthers(target.ID))); err != nil {
		return err
	}
	return s.userRepository.SetFriends(target.ID,
		lo.Filter(target.Friends, keepOthers(current.ID)))
}

// List resolves the caller's friend ids into profiles. A dangling id
// (deleted account) is skipped rather than failing the whole listing.
func (s *FriendService) List(userID string) ([]Friend, error) {
	current, err := s.userRepository.GetByID(userID)
	if err != nil {
		return nil, err
	}

	var friends []Friend
	for _, id := range current.Friends {
		user, err := s.userRepository.GetByID(id)
		if err != nil {
			continue
		}
		friends = append(friends, toFriend(user))
	}
	return friends, nil
}

// Search returns users whose username starts with query, excluding the
// caller.
func (s *FriendService) Search(userID, query string) ([]Friend, error) {
	users, err := s.userRepository.SearchByPrefix(strings.ToLower(query), s.searchLimit)
	if err != nil {
		return nil, err
	}
	others := lo.Filter(users, func(u repositories.User, _ int) bool {
		return u.ID != userID
	})
	return lo.Map(others, func(u repositories.User, _ int) Friend {
		return toFriend(u)
	}), nil
}

// Get returns the detail view of one friend, presence included.
func (s *FriendService) Get(friendID string) (FriendProfile, error) {
	user, err := s.userRepository.GetByID(friendID)
	if err != nil {
		return FriendProfile{}, err
	}
	return FriendProfile{
		ID:        user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		LastSeen:  user.LastSeen,
		IsOnline:  s.registry.IsOnline(domain.UserID(user.ID)),
	}, nil
}

func toFriend(u repositories.User) Friend {
	return Friend{ID: u.ID, Username: u.Username, Email: u.Email}
}
