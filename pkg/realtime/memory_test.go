package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifsync/pkg/notifications"
)

func TestMemoryChannel_PublishSubscribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := NewMemoryChannel()
	t.Cleanup(func() { _ = ch.Close() })

	rec := &recorder{}
	sub, err := ch.Subscribe(ctx, NotificationsTopic("u1"), rec)
	require.NoError(t, err)

	require.NoError(t, ch.Publish(ctx, NotificationsTopic("u1"), Event{ID: "n1", UserID: "u1"}))
	require.NoError(t, ch.Publish(ctx, NotificationsTopic("u2"), Event{ID: "n2", UserID: "u2"}), "no listeners is fine")

	require.Eventually(t, func() bool { return len(rec.Events()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "n1", rec.Events()[0].ID)

	require.NoError(t, sub.Unsubscribe())
	sub.(*memorySubscription).Wait()

	require.NoError(t, ch.Publish(ctx, NotificationsTopic("u1"), Event{ID: "n3", UserID: "u1"}))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.Events(), 1)
}

func TestMemoryChannel_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := NewMemoryChannel()

	_, err := ch.Subscribe(ctx, Topic{}, &recorder{})
	require.ErrorIs(t, err, ErrInvalidTopic)
	require.ErrorIs(t, ch.Publish(ctx, Topic{Table: "notifications"}, Event{}), ErrInvalidTopic)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	_, err = ch.Subscribe(ctx, NotificationsTopic("u1"), &recorder{})
	require.ErrorIs(t, err, ErrChannelClosed)
	require.ErrorIs(t, ch.Publish(ctx, NotificationsTopic("u1"), Event{}), ErrChannelClosed)
}

func TestMemoryChannel_EvictsLeastRecentTopic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := NewMemoryChannel(WithMaxTopics(1), WithBufferSize(4))
	t.Cleanup(func() { _ = ch.Close() })

	first, err := ch.Subscribe(ctx, NotificationsTopic("u1"), &recorder{})
	require.NoError(t, err)
	_, err = ch.Subscribe(ctx, NotificationsTopic("u2"), &recorder{})
	require.NoError(t, err)

	assert.Equal(t, 1, ch.Topics())

	done := make(chan struct{})
	go func() {
		first.(*memorySubscription).Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evicted subscription still running")
	}
}

func TestMemoryChannel_ContextEndsSubscription(t *testing.T) {
	t.Parallel()

	ch := NewMemoryChannel()
	t.Cleanup(func() { _ = ch.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := ch.Subscribe(ctx, NotificationsTopic("u1"), &recorder{})
	require.NoError(t, err)

	cancel()
	done := make(chan struct{})
	go func() {
		sub.(*memorySubscription).Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscription outlived its context")
	}
}

func TestNewDeliverer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := NewMemoryChannel()
	t.Cleanup(func() { _ = ch.Close() })

	rec := &recorder{}
	_, err := ch.Subscribe(ctx, NotificationsTopic("u1"), rec)
	require.NoError(t, err)

	repo := notifications.NewMemoryRepository()
	sent, err := notifications.NewDispatcher(repo, NewDeliverer(ch)).Send(ctx, notifications.Notification{UserID: "u1", Message: "hi"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.Events()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Event{ID: sent.ID, UserID: "u1"}, rec.Events()[0])
}
