package services

import (
	"chatroom/auth"
	"chatroom/errors"
	"chatroom/repositories"
	"fmt"
	"time"
)

type IAuthService interface {
	Register(username, email, password string) (Session, error)
	Login(username, password string) (Session, error)
}

// Session is what a successful signup or login hands back to the client.
type Session struct {
	Token string
	User  repositories.User
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokenDuration  time.Duration
}

func NewAuthService(repo repositories.IUserRepository, tokenDuration time.Duration) IAuthService {
	return &AuthService{userRepository: repo, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(username, email, password string) (Session, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}

	// 1. Validate business rules (username/email format, password complexity)
	// before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return Session{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// 2. Hash the password using Argon2id.
	// Done in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the user with the generated hash.
	user, err := s.userRepository.CreateUser(username, email, hashedPassword)
	if err != nil {
		return Session{}, err // Propagates ErrUserAlreadyExists if the name is taken
	}

	// 4. Generate the initial session token.
	token, err := auth.GenerateToken(user.ID, user.Username, s.tokenDuration)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}

	return Session{Token: token, User: user}, nil
}

func (s *AuthService) Login(username, password string) (Session, error) {
	// 1. Retrieve the user by username.
	user, err := s.userRepository.GetByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration attacks.
		return Session{}, errors.ErrInvalidCredentials
	}

	// 2. Compare the provided password with the stored hash.
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}

	// 3. Issue the JWT token.
	token, err := auth.GenerateToken(user.ID, user.Username, s.tokenDuration)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}

	return Session{Token: token, User: user}, nil
}
