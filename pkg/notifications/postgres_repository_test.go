package notifications_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifsync/pkg/notifications"
	"github.com/dmitrymomot/notifsync/pkg/pg"
)

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := pg.Config{ConnectionString: dsn, MaxOpenConns: 4, RetryAttempts: 1, MigrationsTable: "notifsync_test_migrations"}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	log := slog.New(slog.DiscardHandler)
	require.NoError(t, pg.Migrate(ctx, pool, notifications.Migrations, notifications.MigrationsDir, cfg, log))

	repo := notifications.NewPostgresRepository(pool)
	owner, sender := uuid.NewString(), uuid.NewString()

	_, err = repo.Insert(ctx, notifications.Notification{UserID: owner, Message: "orphan"})
	require.ErrorIs(t, err, notifications.ErrProfileNotFound)

	_, err = repo.List(ctx, owner, notifications.ListOptions{})
	require.ErrorIs(t, err, notifications.ErrProfileNotFound)

	require.NoError(t, repo.UpsertProfile(ctx, notifications.Sender{ID: owner, DisplayName: "Bob", Handle: "bob"}))
	require.NoError(t, repo.UpsertProfile(ctx, notifications.Sender{ID: sender, DisplayName: "Ana", Handle: "ana"}))
	require.NoError(t, repo.Follow(ctx, owner, sender))

	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	first, err := repo.Insert(ctx, notifications.Notification{
		UserID: owner, Kind: notifications.KindNewFollower, SenderID: sender, Message: "followed you", CreatedAt: base,
	})
	require.NoError(t, err)
	second, err := repo.Insert(ctx, notifications.Notification{UserID: owner, Kind: "promo", Message: "system"})
	require.NoError(t, err)
	assert.Equal(t, notifications.KindOther, second.Kind)

	list, err := repo.List(ctx, owner, notifications.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	require.NotNil(t, list[1].Sender)
	assert.Equal(t, "Ana", list[1].Sender.DisplayName)
	assert.True(t, list[1].AlreadyFollowingSender)

	one, err := repo.List(ctx, owner, notifications.ListOptions{IDs: []string{first.ID, "not-a-uuid"}})
	require.NoError(t, err)
	require.Len(t, one, 1)

	count, err := repo.CountUnread(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.MarkRead(ctx, owner, first.ID))
	count, err = repo.CountUnread(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.MarkUnread(ctx, owner, first.ID))
	require.NoError(t, repo.MarkAllRead(ctx, owner))
	count, err = repo.CountUnread(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, repo.Delete(ctx, owner, first.ID, second.ID))
	list, err = repo.List(ctx, owner, notifications.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
