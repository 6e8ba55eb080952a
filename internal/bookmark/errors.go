package bookmark

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPostID is returned when a post id is not a positive integer
	ErrInvalidPostID = errors.New("invalid post id")

	// ErrInvalidNonce is returned when the anti-forgery token is missing or stale
	ErrInvalidNonce = errors.New("invalid nonce")

	// ErrForbidden is returned when the viewer lacks the required role
	ErrForbidden = errors.New("forbidden")

	// ErrStorage is returned when the association store cannot be reached
	ErrStorage = errors.New("bookmark storage unavailable")
)

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
