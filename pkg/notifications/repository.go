package notifications

import "context"

// Repository is the relational source of truth for notification rows.
// All methods are scoped to the owning user.
type Repository interface {
	// List returns the user's notifications newest first, with the sender
	// snapshot and follow hint joined in. It returns ErrProfileNotFound when
	// the user has no profile row yet.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, ids ...string) error
	MarkUnread(ctx context.Context, userID string, ids ...string) error

	// MarkAllRead flips only the user's unread rows.
	MarkAllRead(ctx context.Context, userID string) error

	Delete(ctx context.Context, userID string, ids ...string) error
}

// Writer creates notification rows. Producers use it; the read engine never does.
type Writer interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
}

// ListOptions filters a List call.
type ListOptions struct {
	Limit      int      // 0 means no limit
	OnlyUnread bool     // skip read rows
	IDs        []string // restrict to these ids when non-empty
}
