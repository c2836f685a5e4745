package services

import (
	"chatroom/auth"
	"chatroom/errors"
	"chatroom/mocks"
	"chatroom/repositories"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, 24*time.Hour)

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		username := "alice42"
		email := "test@example.com"
		password := "ComplexPass123!"

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser(username, email, gomock.Not(password)).
			Return(repositories.User{ID: "user-uuid", Username: username, Email: email}, nil).
			Times(1)

		session, err := svc.Register(username, email, password)

		req.NoError(err)
		req.NotEmpty(session.Token)
		req.Equal("user-uuid", session.User.ID)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		session, err := svc.Register("alice42", "test@example.com", "simple")

		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(session.Token)
	})

	t.Run("should fail when the username is already taken", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			CreateUser("duplicate", "dup@example.com", gomock.Any()).
			Return(repositories.User{}, errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register("duplicate", "dup@example.com", "ComplexPass123!")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, 24*time.Hour)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		password := "Secret123456!"

		hashedPassword, _ := auth.HashPassword(password)
		storedUser := repositories.User{
			ID:           "uuid-123",
			Username:     "alice",
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().
			GetByUsername("alice").
			Return(storedUser, nil).
			Times(1)

		session, err := svc.Login("alice", password)

		req.NoError(err)
		req.NotEmpty(session.Token)

		claims, err := auth.ValidateToken(session.Token)
		req.NoError(err)
		req.Equal(storedUser.ID, claims.UserID)
		req.Equal(storedUser.Username, claims.Username)
	})

	t.Run("should return invalid credentials when password matches nothing", func(t *testing.T) {
		req := require.New(t)

		hashedPassword, _ := auth.HashPassword("CorrectPassword123!")
		storedUser := repositories.User{
			Username:     "alice",
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().
			GetByUsername("alice").
			Return(storedUser, nil).
			Times(1)

		_, err := svc.Login("alice", "WrongPassword123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when user is not found", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			GetByUsername("unknown").
			Return(repositories.User{}, errors.ErrUserNotFound).
			Times(1)

		_, err := svc.Login("unknown", "anyPassword")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
