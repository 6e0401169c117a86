package notifications

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotFound means the user exists in auth but has no profile row
	// yet, typically right after signup. Readers treat it as an empty inbox.
	ErrProfileNotFound = errors.New("notifications: profile not found")

	ErrNotificationNotFound = errors.New("notifications: notification not found")
	ErrInvalidNotification  = errors.New("notifications: invalid notification")
	ErrRepositoryPanic      = errors.New("notifications: repository panicked")
)

func recovered(r any) error {
	if err, ok := r.(error); ok {
		return errors.Join(ErrRepositoryPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrRepositoryPanic, r)
}
