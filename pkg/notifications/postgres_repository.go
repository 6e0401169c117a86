package notifications

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the goose migrations for the notification schema,
// including the insert trigger that publishes on InsertChannel.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// InsertChannel is the LISTEN/NOTIFY channel the insert trigger publishes
// {"id": ..., "user_id": ...} payloads on.
const InsertChannel = "notifications_inserted"

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository and Writer on PostgreSQL.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a repository over db.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectNotifications = `
SELECT
    n.id::text,
    n.user_id::text,
    n.type,
    COALESCE(n.sender_id::text, ''),
    COALESCE(n.related_entity_id, ''),
    n.message,
    n.read,
    n.created_at,
    p.id::text,
    COALESCE(p.display_name, ''),
    COALESCE(p.handle, ''),
    COALESCE(p.avatar_url, ''),
    EXISTS (
        SELECT 1 FROM follows f
        WHERE f.follower_id = n.user_id AND f.followee_id = n.sender_id
    )
FROM notifications n
LEFT JOIN profiles p ON p.id = n.sender_id
WHERE n.user_id = $1::uuid`

// List returns the user's notifications newest first, joined with sender
// profiles and the follow hint.
func (r *PostgresRepository) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	if !validUUID(userID) {
		return nil, ErrProfileNotFound
	}

	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1::uuid)", userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking profile: %w", err)
	}
	if !exists {
		return nil, ErrProfileNotFound
	}

	var sb strings.Builder
	sb.WriteString(selectNotifications)
	args := []any{userID}

	if opts.OnlyUnread {
		sb.WriteString(" AND NOT n.read")
	}
	if len(opts.IDs) > 0 {
		ids := validUUIDs(opts.IDs)
		if len(ids) == 0 {
			return nil, nil
		}
		args = append(args, ids)
		sb.WriteString(" AND n.id = ANY($" + strconv.Itoa(len(args)) + "::uuid[])")
	}
	sb.WriteString(" ORDER BY n.created_at DESC, n.id DESC")
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}

	list, err := pgx.CollectRows(rows, scanNotification)
	if err != nil {
		return nil, fmt.Errorf("scanning notifications: %w", err)
	}
	return list, nil
}

func scanNotification(row pgx.CollectableRow) (Notification, error) {
	var (
		n        Notification
		kind     string
		senderID *string
		sender   Sender
	)
	err := row.Scan(
		&n.ID, &n.UserID, &kind, &n.SenderID, &n.RelatedEntityID, &n.Message, &n.Read, &n.CreatedAt,
		&senderID, &sender.DisplayName, &sender.Handle, &sender.AvatarURL,
		&n.AlreadyFollowingSender,
	)
	if err != nil {
		return Notification{}, err
	}

	n.Kind = ParseKind(kind)
	if senderID != nil {
		sender.ID = *senderID
		n.Sender = &sender
	}
	return n, nil
}

// CountUnread counts the user's unread notifications.
func (r *PostgresRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	if !validUUID(userID) {
		return 0, nil
	}

	var count int
	err := r.db.QueryRow(ctx,
		"SELECT count(*) FROM notifications WHERE user_id = $1::uuid AND NOT read", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks ids read.
func (r *PostgresRepository) MarkRead(ctx context.Context, userID string, ids ...string) error {
	return r.setRead(ctx, userID, true, ids)
}

// MarkUnread marks ids unread.
func (r *PostgresRepository) MarkUnread(ctx context.Context, userID string, ids ...string) error {
	return r.setRead(ctx, userID, false, ids)
}

func (r *PostgresRepository) setRead(ctx context.Context, userID string, read bool, ids []string) error {
	ids = validUUIDs(ids)
	if !validUUID(userID) || len(ids) == 0 {
		return nil
	}

	_, err := r.db.Exec(ctx,
		"UPDATE notifications SET read = $3 WHERE user_id = $1::uuid AND id = ANY($2::uuid[]) AND read <> $3",
		userID, ids, read,
	)
	if err != nil {
		return fmt.Errorf("updating read flag: %w", err)
	}
	return nil
}

// MarkAllRead marks only the user's unread rows read.
func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID string) error {
	if !validUUID(userID) {
		return nil
	}

	if _, err := r.db.Exec(ctx, "UPDATE notifications SET read = true WHERE user_id = $1::uuid AND NOT read", userID); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// Delete removes ids owned by the user.
func (r *PostgresRepository) Delete(ctx context.Context, userID string, ids ...string) error {
	ids = validUUIDs(ids)
	if !validUUID(userID) || len(ids) == 0 {
		return nil
	}

	if _, err := r.db.Exec(ctx, "DELETE FROM notifications WHERE user_id = $1::uuid AND id = ANY($2::uuid[])", userID, ids); err != nil {
		return fmt.Errorf("deleting notifications: %w", err)
	}
	return nil
}

// Insert creates a row. The database assigns id and created_at when they
// are empty, and the insert trigger publishes the push event.
func (r *PostgresRepository) Insert(ctx context.Context, n Notification) (Notification, error) {
	if !validUUID(n.UserID) {
		return Notification{}, fmt.Errorf("%w: user id must be a uuid", ErrInvalidNotification)
	}
	if n.SenderID != "" && !validUUID(n.SenderID) {
		return Notification{}, fmt.Errorf("%w: sender id must be a uuid", ErrInvalidNotification)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	var createdAt *time.Time
	if !n.CreatedAt.IsZero() {
		createdAt = &n.CreatedAt
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, type, sender_id, related_entity_id, message, read, created_at)
		VALUES ($1::uuid, $2::uuid, $3, NULLIF($4, '')::uuid, NULLIF($5, ''), $6, $7, COALESCE($8, now()))
		RETURNING created_at`,
		n.ID, n.UserID, string(ParseKind(string(n.Kind))), n.SenderID, n.RelatedEntityID, n.Message, n.Read, createdAt,
	).Scan(&n.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Notification{}, errors.Join(ErrProfileNotFound, err)
		}
		return Notification{}, fmt.Errorf("inserting notification: %w", err)
	}

	n.Kind = ParseKind(string(n.Kind))
	return n, nil
}

// UpsertProfile creates or updates a public profile row.
func (r *PostgresRepository) UpsertProfile(ctx context.Context, p Sender) error {
	if !validUUID(p.ID) {
		return fmt.Errorf("%w: profile id must be a uuid", ErrInvalidNotification)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (id, display_name, handle, avatar_url)
		VALUES ($1::uuid, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name, handle = EXCLUDED.handle, avatar_url = EXCLUDED.avatar_url`,
		p.ID, p.DisplayName, p.Handle, p.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

// Follow records that follower follows followee.
func (r *PostgresRepository) Follow(ctx context.Context, follower, followee string) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO follows (follower_id, followee_id) VALUES ($1::uuid, $2::uuid) ON CONFLICT DO NOTHING",
		follower, followee,
	)
	if err != nil {
		return fmt.Errorf("following profile: %w", err)
	}
	return nil
}

// validUUID accepts only the canonical 36-character form.
func validUUID(s string) bool {
	return len(s) == 36 && uuid.Validate(s) == nil
}

// validUUIDs drops ids Postgres would reject, so one bad id cannot fail a batch.
func validUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validUUID(id) {
			out = append(out, id)
		}
	}
	return out
}
