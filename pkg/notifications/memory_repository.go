package notifications

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository and Writer for development
// and tests. Profiles and follows are kept alongside notifications so reads
// carry the same joined shape as the Postgres repository.
type MemoryRepository struct {
	mu            sync.RWMutex
	notifications map[string][]Notification // owner -> rows, insertion order
	profiles      map[string]Sender
	follows       map[string]map[string]struct{} // follower -> followees
	now           func() time.Time
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		notifications: make(map[string][]Notification),
		profiles:      make(map[string]Sender),
		follows:       make(map[string]map[string]struct{}),
		now:           time.Now,
	}
}

// UpsertProfile stores a public profile.
func (r *MemoryRepository) UpsertProfile(_ context.Context, p Sender) error {
	if p.ID == "" {
		return fmt.Errorf("%w: profile id is required", ErrInvalidNotification)
	}
	r.mu.Lock()
	r.profiles[p.ID] = p
	r.mu.Unlock()
	return nil
}

// Follow records that follower follows followee.
func (r *MemoryRepository) Follow(_ context.Context, follower, followee string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.follows[follower] == nil {
		r.follows[follower] = make(map[string]struct{})
	}
	r.follows[follower][followee] = struct{}{}
	return nil
}

// Insert stores n, assigning an id and creation time when missing. The
// owner gets a bare profile if none exists, mirroring a provisioned account.
func (r *MemoryRepository) Insert(_ context.Context, n Notification) (Notification, error) {
	if n.UserID == "" {
		return Notification{}, fmt.Errorf("%w: user id is required", ErrInvalidNotification)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	n.Kind = ParseKind(string(n.Kind))
	n.Sender = nil
	n.AlreadyFollowingSender = false

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[n.UserID]; !ok {
		r.profiles[n.UserID] = Sender{ID: n.UserID}
	}
	for _, existing := range r.notifications[n.UserID] {
		if existing.ID == n.ID {
			return Notification{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidNotification, n.ID)
		}
	}
	r.notifications[n.UserID] = append(r.notifications[n.UserID], n)
	return r.hydrate(n), nil
}

// List returns the user's notifications newest first.
func (r *MemoryRepository) List(_ context.Context, userID string, opts ListOptions) ([]Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.profiles[userID]; !ok {
		return nil, ErrProfileNotFound
	}

	var out []Notification
	for _, n := range r.notifications[userID] {
		if opts.OnlyUnread && n.Read {
			continue
		}
		if len(opts.IDs) > 0 && !slices.Contains(opts.IDs, n.ID) {
			continue
		}
		out = append(out, r.hydrate(n))
	}

	sortNewestFirst(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// hydrate must be called with r.mu held.
func (r *MemoryRepository) hydrate(n Notification) Notification {
	if n.SenderID != "" {
		if p, ok := r.profiles[n.SenderID]; ok {
			n.Sender = &p
		}
		_, n.AlreadyFollowingSender = r.follows[n.UserID][n.SenderID]
	}
	return n
}

// CountUnread counts the user's unread notifications.
func (r *MemoryRepository) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.notifications[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead marks ids read. Unknown ids are ignored.
func (r *MemoryRepository) MarkRead(_ context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	r.setRead(userID, true, ids)
	return nil
}

// MarkUnread marks ids unread. Unknown ids are ignored.
func (r *MemoryRepository) MarkUnread(_ context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	r.setRead(userID, false, ids)
	return nil
}

// MarkAllRead marks every notification of the user read.
func (r *MemoryRepository) MarkAllRead(_ context.Context, userID string) error {
	r.setRead(userID, true, nil)
	return nil
}

// setRead applies to every row of the user when ids is empty.
func (r *MemoryRepository) setRead(userID string, read bool, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.notifications[userID]
	for i := range rows {
		if len(ids) == 0 || slices.Contains(ids, rows[i].ID) {
			rows[i].Read = read
		}
	}
}

// Delete removes ids. Unknown ids are ignored.
func (r *MemoryRepository) Delete(_ context.Context, userID string, ids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications[userID] = slices.DeleteFunc(r.notifications[userID], func(n Notification) bool {
		return slices.Contains(ids, n.ID)
	})
	return nil
}
