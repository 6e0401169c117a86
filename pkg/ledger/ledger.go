package ledger

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifsync/pkg/cache"
	"github.com/dmitrymomot/notifsync/pkg/logger"
)

const (
	keyLastVisit = "last_visit"
	keySeenIDs   = "seen_ids"
)

// Ledger tracks the last visit and the seen set of one user on one device.
// It is safe for concurrent use.
type Ledger struct {
	storage  Storage
	ns       string
	capacity int
	now      func() time.Time
	log      *slog.Logger

	mu       sync.Mutex
	seen     *cache.BoundedSet[string]
	visit    time.Time
	hasVisit bool
}

// New builds a ledger over storage and restores any state already there.
func New(storage Storage, opts ...Option) *Ledger {
	l := &Ledger{
		storage:  storage,
		ns:       DefaultNamespace,
		capacity: DefaultCapacity,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(logger.Component("ledger"))

	l.visit, l.hasVisit = l.readVisit()
	l.seen = cache.NewBoundedSet(l.capacity, l.readSeen()...)
	return l
}

// SaveVisit records now as the last visit.
func (l *Ledger) SaveVisit() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.visit, l.hasVisit = now, true
	l.write(keyLastVisit, now)
}

// Visit returns the last recorded visit.
func (l *Ledger) Visit() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visit, l.hasVisit
}

// IsNewSinceLastVisit reports whether something created at createdAt
// appeared after the last visit. With no visit recorded everything is new.
func (l *Ledger) IsNewSinceLastVisit(createdAt time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.hasVisit || createdAt.After(l.visit)
}

// CountNewSinceLastVisit counts the timestamps after the last visit.
func (l *Ledger) CountNewSinceLastVisit(createdAt ...time.Time) int {
	n := 0
	for _, t := range createdAt {
		if l.IsNewSinceLastVisit(t) {
			n++
		}
	}
	return n
}

// MarkSeen adds id to the seen set, evicting the oldest id when full.
// Marking an id twice is a no-op.
func (l *Ledger) MarkSeen(id string) {
	if id == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, added := l.seen.Add(id); added {
		l.write(keySeenIDs, l.seen.Items())
	}
}

// IsSeen reports whether id is in the seen set.
func (l *Ledger) IsSeen(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen.Contains(id)
}

// SeenIDs returns the seen set, oldest first.
func (l *Ledger) SeenIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen.Items()
}

func (l *Ledger) readVisit() (time.Time, bool) {
	var t time.Time
	if !l.read(keyLastVisit, &t) || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

func (l *Ledger) readSeen() []string {
	var ids []string
	if !l.read(keySeenIDs, &ids) {
		return nil
	}
	return ids
}

func (l *Ledger) read(key string, v any) bool {
	raw, err := l.storage.Get(l.ns + key)
	if err != nil {
		l.log.Warn("ledger read failed", slog.String("key", l.ns+key), logger.Error(err))
		return false
	}
	if len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		l.log.Debug("ignoring malformed ledger value", slog.String("key", l.ns+key), logger.Error(err))
		return false
	}
	return true
}

// write must be called with l.mu held so concurrent writers persist in order.
func (l *Ledger) write(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		l.log.Warn("ledger encode failed", slog.String("key", l.ns+key), logger.Error(err))
		return
	}
	if err := l.storage.Set(l.ns+key, raw, 0); err != nil {
		l.log.Warn("ledger write failed", slog.String("key", l.ns+key), logger.Error(err))
	}
}
