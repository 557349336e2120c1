package usecase

import (
	"errors"
	"fmt"
	"time"
)

// Failure taxonomy shared by the usecases. Handlers match these with
// errors.Is and translate them to transport status codes; anything else is an
// internal error.
var (
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrMissingToken        = errors.New("missing or malformed bearer token")
	ErrTokenExpired        = errors.New("token has expired")
	ErrTokenInvalid        = errors.New("token is invalid")
	ErrTokenRevoked        = errors.New("token has been revoked")
	ErrResetAlreadyPending = errors.New("a password reset is already pending")
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired one-time code")
	ErrPasswordUnchanged   = errors.New("new password must differ from the current password")
	ErrEmailDeliveryFailed = errors.New("failed to deliver email")
	ErrAlreadyVerified     = errors.New("email is already verified")
	ErrNoteNotFound        = errors.New("note not found")
)

// ResetPendingError reports how long the outstanding reset code remains
// valid. It matches ErrResetAlreadyPending under errors.Is.
type ResetPendingError struct {
	RemainingMinutes int
}

func newResetPendingError(remaining time.Duration) *ResetPendingError {
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return &ResetPendingError{RemainingMinutes: minutes}
}

func (e *ResetPendingError) Error() string {
	return fmt.Sprintf("a password reset is already pending; try again in %d minute(s)", e.RemainingMinutes)
}

func (e *ResetPendingError) Is(target error) bool {
	return target == ErrResetAlreadyPending
}
