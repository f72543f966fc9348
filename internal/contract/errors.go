package contract

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across layers.
var (
	ErrUnauthorized = errors.New("unauthorized: missing or invalid access token")
	ErrRateLimited  = errors.New("rate limited")
	ErrNoSnapshot   = errors.New("no snapshot found")
	ErrUserNotFound = errors.New("user not found")

	ErrUsernameRequired = errors.New("username is required")
)

// RateLimitError carries the quota state that caused a scan to abort.
type RateLimitError struct {
	Reason    string
	Limit     int
	Remaining int
	Reset     time.Time
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return fmt.Sprintf("rate limited: %s (remaining %d)", e.Reason, e.Remaining)
	}
	return fmt.Sprintf("rate limited: %s (remaining %d, resets at %s)", e.Reason, e.Remaining, e.Reset.UTC().Format(time.RFC3339))
}

// Unwrap lets errors.Is match ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
