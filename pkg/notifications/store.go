package notifications

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// Backend is the server side of a Store. *Gateway implements it.
type Backend interface {
	ListMine(ctx context.Context, userID string, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkUnread(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	DeleteOne(ctx context.Context, userID, id string) error
}

// ReadLedger is the device-local read state. *ledger.Ledger implements it.
type ReadLedger interface {
	IsNewSinceLastVisit(createdAt time.Time) bool
	IsSeen(id string) bool
	MarkSeen(id string)
}

// State is a point-in-time copy of a Store.
type State struct {
	Notifications     []Notification `json:"notifications"`
	UnreadCount       int            `json:"unread_count"`
	BadgeCount        int            `json:"badge_count"`
	NewSinceLastVisit int            `json:"new_since_last_visit"`
	Loading           bool           `json:"loading"`
}

// Store is the reconciled in-memory view of one user's notifications.
//
// It is the only writer of the list and its counters. Every method holds
// a single mutex while mutating; backend calls happen outside it, so
// realtime merges and user actions may interleave with a load in flight.
// UnreadCount always equals the number of unread entries in the list:
// mutations adjust it only when an entry actually changes state.
//
// Mutations are optimistic. Local state changes first and is kept even if
// the backend call then fails; the error is logged and returned.
type Store struct {
	backend  Backend
	ledger   ReadLedger
	limit    int
	logger   *slog.Logger
	onChange func(State)

	mu       sync.Mutex
	items    []Notification
	unread   int
	badge    int
	fresh    map[string]struct{} // ids counted as new since the last visit
	loading  int
	visiting bool
	loadGen  uint64
	pending  *pendingChanges
}

// pendingChanges records local mutations made while a load is in flight,
// so the fetched list does not silently undo them.
type pendingChanges struct {
	merged  map[string]struct{}
	removed map[string]struct{}
	read    map[string]bool
	allRead bool
}

func newPendingChanges() *pendingChanges {
	return &pendingChanges{
		merged:  make(map[string]struct{}),
		removed: make(map[string]struct{}),
		read:    make(map[string]bool),
	}
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithListLimit sets how many notifications Load fetches. Zero defers to
// the backend default.
func WithListLimit(n int) StoreOption {
	return func(s *Store) {
		s.limit = n
	}
}

// WithChangeHandler registers fn to receive a State after every change.
// fn runs while the store is locked, so changes are delivered in order;
// it must not call back into the store.
func WithChangeHandler(fn func(State)) StoreOption {
	return func(s *Store) {
		s.onChange = fn
	}
}

// NewStore creates an empty Store. Call Load to populate it.
func NewStore(backend Backend, ledger ReadLedger, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		ledger:  ledger,
		logger:  slog.Default(),
		fresh:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("notifications.store"))
	return s
}

// Load replaces the list with a fresh fetch. Entries merged while the
// fetch was in flight are kept, as are local read flips and removals made
// in that window. A failed fetch or a missing identity yields an empty list.
// When loads overlap, only the most recent one applies.
func (s *Store) Load(ctx context.Context, userID string) {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.loading++
	if s.pending == nil {
		s.pending = newPendingChanges()
	}
	s.emitLocked()
	s.mu.Unlock()

	list, err := s.backend.ListMine(ctx, userID, s.limit)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "notification load failed, showing empty list",
			logger.UserID(userID), logger.Error(err))
		list = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading--
	if gen != s.loadGen {
		s.emitLocked()
		return
	}

	p := s.pending
	s.pending = nil
	s.items = reconcile(list, s.items, p)
	s.unread = countUnread(s.items)
	clear(s.fresh)
	for _, n := range s.items {
		if s.ledger.IsNewSinceLastVisit(n.CreatedAt) && !s.ledger.IsSeen(n.ID) {
			s.fresh[n.ID] = struct{}{}
		}
	}
	s.emitLocked()
}

func reconcile(fetched, current []Notification, p *pendingChanges) []Notification {
	out := make([]Notification, 0, len(fetched)+len(p.merged))
	seen := make(map[string]struct{}, len(fetched))

	for _, n := range fetched {
		if _, gone := p.removed[n.ID]; gone {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		if p.allRead {
			n.Read = true
		}
		if read, ok := p.read[n.ID]; ok {
			n.Read = read
		}
		seen[n.ID] = struct{}{}
		out = append(out, n.Clone())
	}

	for _, n := range current {
		if _, merged := p.merged[n.ID]; !merged {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}

	sortNewestFirst(out)
	return out
}

// RefreshUnreadCount sets the badge count from the server. It does not
// depend on Load. On failure the previous count is kept.
func (s *Store) RefreshUnreadCount(ctx context.Context, userID string) error {
	count, err := s.backend.CountUnread(ctx, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.badge != count {
		s.badge = count
		s.emitLocked()
	}
	return nil
}

// Merge adds n unless an entry with the same id exists, keeping the list
// newest first. It reports whether n was added.
func (s *Store) Merge(n Notification) bool {
	if n.ID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(n.ID) >= 0 {
		return false
	}

	n = n.Clone()
	pos := slices.IndexFunc(s.items, func(x Notification) bool { return newer(n, x) })
	if pos < 0 {
		pos = len(s.items)
	}
	s.items = slices.Insert(s.items, pos, n)

	if !n.Read {
		s.unread++
	}
	if !s.visiting {
		s.fresh[n.ID] = struct{}{}
	}
	if s.pending != nil {
		s.pending.merged[n.ID] = struct{}{}
	}
	s.emitLocked()
	return true
}

// MarkRead flips id to read locally, records it as seen, then persists.
// The server call is made even when id is not in the local list.
func (s *Store) MarkRead(ctx context.Context, userID, id string) error {
	s.setRead(id, true)
	s.ledger.MarkSeen(id)
	return s.persist(ctx, "mark read", userID, id, s.backend.MarkRead)
}

// MarkUnread flips id back to unread locally, then persists.
func (s *Store) MarkUnread(ctx context.Context, userID, id string) error {
	s.setRead(id, false)
	return s.persist(ctx, "mark unread", userID, id, s.backend.MarkUnread)
}

func (s *Store) setRead(id string, read bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.pending.read[id] = read
	}

	i := s.indexLocked(id)
	if i < 0 || s.items[i].Read == read {
		return
	}

	s.items[i].Read = read
	if read {
		s.unread--
		s.badge = max(s.badge-1, 0)
	} else {
		s.unread++
		s.badge++
	}
	s.emitLocked()
}

// MarkAllRead flips every entry to read and zeroes the unread, badge and
// new counters, then persists. Calling it twice is harmless.
func (s *Store) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	ids := make([]string, len(s.items))
	for i := range s.items {
		s.items[i].Read = true
		ids[i] = s.items[i].ID
	}
	s.unread, s.badge = 0, 0
	clear(s.fresh)
	if s.pending != nil {
		s.pending.allRead = true
		clear(s.pending.read)
	}
	s.emitLocked()
	s.mu.Unlock()

	for _, id := range ids {
		s.ledger.MarkSeen(id)
	}

	if err := s.backend.MarkAllRead(ctx, userID); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "mark all read failed, keeping local state",
			logger.UserID(userID), logger.Error(err))
		return err
	}
	return nil
}

// Remove drops id locally, then deletes it on the server. An id that is
// not in the list is ignored and the server is not called.
func (s *Store) Remove(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}

	n := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	if !n.Read {
		s.unread--
		s.badge = max(s.badge-1, 0)
	}
	delete(s.fresh, id)
	if s.pending != nil {
		s.pending.removed[id] = struct{}{}
		delete(s.pending.merged, id)
	}
	s.emitLocked()
	s.mu.Unlock()

	return s.persist(ctx, "delete", userID, id, s.backend.DeleteOne)
}

func (s *Store) persist(ctx context.Context, op, userID, id string, fn func(context.Context, string, string) error) error {
	if err := fn(ctx, userID, id); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, op+" failed, keeping local state",
			logger.UserID(userID), logger.NotificationID(id), logger.Error(err))
		return err
	}
	return nil
}

// SetVisiting records whether the user is looking at the notifications
// view. Merges while visiting do not count as new.
func (s *Store) SetVisiting(visiting bool) {
	s.mu.Lock()
	s.visiting = visiting
	s.mu.Unlock()
}

// Visiting reports whether the notifications view is open.
func (s *Store) Visiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visiting
}

// ResetNewSinceLastVisit zeroes the new counter.
func (s *Store) ResetNewSinceLastVisit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fresh) != 0 {
		clear(s.fresh)
		s.emitLocked()
	}
}

// MarkFollowingSender refreshes the follow hint after the user follows
// senderID from somewhere else.
func (s *Store) MarkFollowingSender(senderID string) {
	if senderID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.items {
		if s.items[i].SenderID == senderID && !s.items[i].AlreadyFollowingSender {
			s.items[i].AlreadyFollowingSender = true
			changed = true
		}
	}
	if changed {
		s.emitLocked()
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	items := make([]Notification, len(s.items))
	for i, n := range s.items {
		items[i] = n.Clone()
	}
	return State{
		Notifications:     items,
		UnreadCount:       s.unread,
		BadgeCount:        s.badge,
		NewSinceLastVisit: len(s.fresh),
		Loading:           s.loading > 0,
	}
}

func (s *Store) emitLocked() {
	if s.onChange != nil {
		s.onChange(s.snapshotLocked())
	}
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.items, func(n Notification) bool { return n.ID == id })
}

func countUnread(items []Notification) int {
	n := 0
	for _, item := range items {
		if !item.Read {
			n++
		}
	}
	return n
}
