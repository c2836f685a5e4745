package errors

import "fmt"

var (
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrSelfFriend         = fmt.Errorf("cannot befriend yourself")
	ErrAlreadyFriends     = fmt.Errorf("already friends")
	ErrMessageNotFound    = fmt.Errorf("message not found")
	ErrNotMessageSender   = fmt.Errorf("only the sender may delete a message")
)
