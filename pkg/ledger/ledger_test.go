package ledger_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifsync/pkg/ledger"
	"github.com/dmitrymomot/notifsync/pkg/logger"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLedger_Visit(t *testing.T) {
	t.Parallel()
	clk := newClock()
	store := ledger.NewMemoryStorage()
	l := ledger.New(store, ledger.WithClock(clk.Now), ledger.WithLogger(logger.Discard()))

	t.Run("no visit means everything is new", func(t *testing.T) {
		_, ok := l.Visit()
		assert.False(t, ok)
		assert.True(t, l.IsNewSinceLastVisit(clk.Now().Add(-24*time.Hour)))
		assert.Equal(t, 2, l.CountNewSinceLastVisit(clk.Now(), clk.Now().Add(-time.Hour)))
	})

	t.Run("after visit only later items are new", func(t *testing.T) {
		l.SaveVisit()
		visit, ok := l.Visit()
		require.True(t, ok)
		assert.True(t, visit.Equal(clk.Now()))

		assert.False(t, l.IsNewSinceLastVisit(visit))
		assert.False(t, l.IsNewSinceLastVisit(visit.Add(-time.Second)))
		assert.True(t, l.IsNewSinceLastVisit(visit.Add(time.Nanosecond)))
		assert.Equal(t, 1, l.CountNewSinceLastVisit(visit.Add(-time.Minute), visit.Add(time.Minute)))
	})

	t.Run("persisted as JSON timestamp", func(t *testing.T) {
		raw, err := store.Get("notifications:last_visit")
		require.NoError(t, err)
		assert.JSONEq(t, `"2026-03-01T12:00:00Z"`, string(raw))
	})
}

func TestLedger_Seen(t *testing.T) {
	t.Parallel()

	t.Run("mark and check", func(t *testing.T) {
		l := ledger.New(ledger.NewMemoryStorage(), ledger.WithLogger(logger.Discard()))
		assert.False(t, l.IsSeen("a"))
		l.MarkSeen("a")
		l.MarkSeen("a")
		l.MarkSeen("")
		assert.True(t, l.IsSeen("a"))
		assert.Equal(t, []string{"a"}, l.SeenIDs())
	})

	t.Run("101st id evicts the oldest", func(t *testing.T) {
		store := ledger.NewMemoryStorage()
		l := ledger.New(store, ledger.WithLogger(logger.Discard()))
		for i := range 101 {
			l.MarkSeen(fmt.Sprintf("id-%d", i))
		}

		assert.False(t, l.IsSeen("id-0"))
		assert.True(t, l.IsSeen("id-1"))
		assert.True(t, l.IsSeen("id-100"))
		assert.Len(t, l.SeenIDs(), ledger.DefaultCapacity)

		reopened := ledger.New(store, ledger.WithLogger(logger.Discard()))
		assert.Equal(t, l.SeenIDs(), reopened.SeenIDs())
	})

	t.Run("custom capacity", func(t *testing.T) {
		l := ledger.New(ledger.NewMemoryStorage(), ledger.WithCapacity(2), ledger.WithLogger(logger.Discard()))
		l.MarkSeen("a")
		l.MarkSeen("b")
		l.MarkSeen("c")
		assert.Equal(t, []string{"b", "c"}, l.SeenIDs())
	})
}

func TestLedger_Restart(t *testing.T) {
	t.Parallel()

	clk := newClock()
	store, err := ledger.NewSQLiteStorage(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	first := ledger.New(store, ledger.WithClock(clk.Now), ledger.WithNamespace("u1:"), ledger.WithLogger(logger.Discard()))
	first.SaveVisit()
	first.MarkSeen("n1")
	first.MarkSeen("n2")

	second := ledger.New(store, ledger.WithNamespace("u1:"), ledger.WithLogger(logger.Discard()))
	visit, ok := second.Visit()
	require.True(t, ok)
	assert.True(t, visit.Equal(clk.Now()))
	assert.Equal(t, []string{"n1", "n2"}, second.SeenIDs())

	other := ledger.New(store, ledger.WithNamespace("u2:"), ledger.WithLogger(logger.Discard()))
	_, ok = other.Visit()
	assert.False(t, ok)
	assert.Empty(t, other.SeenIDs())
}

type brokenStorage struct{}

func (brokenStorage) Get(string) ([]byte, error) { return nil, errors.New("down") }
func (brokenStorage) Set(string, []byte, time.Duration) error { return errors.New("down") }
func (brokenStorage) Delete(string) error { return errors.New("down") }

func TestLedger_DegradesSilently(t *testing.T) {
	t.Parallel()

	t.Run("storage failures", func(t *testing.T) {
		l := ledger.New(brokenStorage{}, ledger.WithLogger(logger.Discard()))
		l.SaveVisit()
		l.MarkSeen("a")
		_, ok := l.Visit()
		assert.True(t, ok)
		assert.True(t, l.IsSeen("a"))
	})

	t.Run("malformed values", func(t *testing.T) {
		store := ledger.NewMemoryStorage()
		require.NoError(t, store.Set("notifications:last_visit", []byte("yesterday"), 0))
		require.NoError(t, store.Set("notifications:seen_ids", []byte("{"), 0))

		l := ledger.New(store, ledger.WithLogger(logger.Discard()))
		_, ok := l.Visit()
		assert.False(t, ok)
		assert.Empty(t, l.SeenIDs())
	})
}

func TestStorages(t *testing.T) {
	t.Parallel()

	sqlite, err := ledger.NewSQLiteStorage(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	for name, s := range map[string]ledger.Storage{
		"memory": ledger.NewMemoryStorage(),
		"sqlite": sqlite,
	} {
		t.Run(name, func(t *testing.T) {
			v, err := s.Get("missing")
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, s.Set("k", []byte("v1"), 0))
			require.NoError(t, s.Set("k", []byte("v2"), 0))
			v, err = s.Get("k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), v)

			require.NoError(t, s.Set("short", []byte("x"), time.Nanosecond))
			time.Sleep(time.Millisecond)
			v, err = s.Get("short")
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, s.Delete("k"))
			v, err = s.Get("k")
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}
