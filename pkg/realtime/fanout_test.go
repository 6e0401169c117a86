package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu         sync.Mutex
	events     []Event
	reconnects int
}

func (r *recorder) OnInsert(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) OnReconnect(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconnects++
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) Reconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconnects
}

func TestFanout(t *testing.T) {
	t.Parallel()

	f := newFanout()
	alice, bob := &recorder{}, &recorder{}

	subA := f.add(context.Background(), NotificationsTopic("alice"), alice)
	f.add(context.Background(), NotificationsTopic("bob"), bob)
	assert.Equal(t, 2, f.len())

	assert.Equal(t, 1, f.dispatch(Event{ID: "n1", UserID: "alice"}))
	assert.Equal(t, 0, f.dispatch(Event{ID: "n2", UserID: "carol"}))
	assert.Equal(t, []Event{{ID: "n1", UserID: "alice"}}, alice.Events())
	assert.Empty(t, bob.Events())

	f.reconnected()
	assert.Equal(t, 1, alice.Reconnects())
	assert.Equal(t, 1, bob.Reconnects())

	require.NoError(t, subA.Unsubscribe())
	require.NoError(t, subA.Unsubscribe())
	f.dispatch(Event{ID: "n3", UserID: "alice"})
	assert.Len(t, alice.Events(), 1)
	assert.Equal(t, 1, f.len())

	f.closeAll()
	assert.Zero(t, f.len())
}

func TestFanout_ContextEndsSubscription(t *testing.T) {
	t.Parallel()

	f := newFanout()
	ctx, cancel := context.WithCancel(context.Background())
	f.add(ctx, NotificationsTopic("alice"), &recorder{})

	cancel()
	require.Eventually(t, func() bool { return f.len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBackoff_Delay(t *testing.T) {
	t.Parallel()

	b := Backoff{Min: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Delay(0))
	assert.Equal(t, 200*time.Millisecond, b.Delay(1))
	assert.Equal(t, 800*time.Millisecond, b.Delay(3))
	assert.Equal(t, time.Second, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(50))

	assert.Equal(t, time.Millisecond, Backoff{}.Delay(0))
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	ev, err := decodeEvent([]byte(`{"id":"n1","user_id":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, Event{ID: "n1", UserID: "u1"}, ev)

	_, err = decodeEvent([]byte(`{"id":"n1"}`))
	require.ErrorIs(t, err, ErrMalformedEvent)

	_, err = decodeEvent([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestTopic(t *testing.T) {
	t.Parallel()

	topic := NotificationsTopic("u1")
	assert.Equal(t, "notifications:u1", topic.String())
	assert.True(t, topic.valid())
	assert.False(t, NotificationsTopic("").valid())
}
