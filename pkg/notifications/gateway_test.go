package notifications

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	args := m.Called(ctx, userID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Notification), args.Error(1)
}

func (m *MockRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) MarkRead(ctx context.Context, userID string, ids ...string) error {
	return m.Called(ctx, userID, ids).Error(0)
}

func (m *MockRepository) MarkUnread(ctx context.Context, userID string, ids ...string) error {
	return m.Called(ctx, userID, ids).Error(0)
}

func (m *MockRepository) MarkAllRead(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, userID string, ids ...string) error {
	return m.Called(ctx, userID, ids).Error(0)
}

func quietGateway(repo Repository, opts ...GatewayOption) *Gateway {
	opts = append([]GatewayOption{WithGatewayLogger(slog.New(slog.DiscardHandler))}, opts...)
	return NewGateway(repo, opts...)
}

func TestGateway_ListMine(t *testing.T) {
	t.Parallel()

	now := time.Now()
	rows := []Notification{
		{ID: "n2", UserID: "u1", CreatedAt: now},
		{ID: "n1", UserID: "u1", CreatedAt: now.Add(-time.Minute)},
	}

	tests := []struct {
		name      string
		userID    string
		limit     int
		setupMock func(*MockRepository)
		want      []Notification
		wantErr   error
	}{
		{
			name:   "returns rows with default limit",
			userID: "u1",
			setupMock: func(m *MockRepository) {
				m.On("List", mock.Anything, "u1", ListOptions{Limit: DefaultListLimit}).Return(rows, nil)
			},
			want: rows,
		},
		{
			name:   "explicit limit",
			userID: "u1",
			limit:  1,
			setupMock: func(m *MockRepository) {
				m.On("List", mock.Anything, "u1", ListOptions{Limit: 1}).Return(rows[:1], nil)
			},
			want: rows[:1],
		},
		{
			name:      "no identity skips repository",
			userID:    "",
			setupMock: func(*MockRepository) {},
			want:      []Notification{},
		},
		{
			name:   "missing profile is an empty inbox",
			userID: "u1",
			setupMock: func(m *MockRepository) {
				m.On("List", mock.Anything, "u1", mock.Anything).Return(nil, ErrProfileNotFound)
			},
			want: []Notification{},
		},
		{
			name:   "nil result becomes empty slice",
			userID: "u1",
			setupMock: func(m *MockRepository) {
				m.On("List", mock.Anything, "u1", mock.Anything).Return(nil, nil)
			},
			want: []Notification{},
		},
		{
			name:   "repository failure",
			userID: "u1",
			setupMock: func(m *MockRepository) {
				m.On("List", mock.Anything, "u1", mock.Anything).Return(nil, errors.New("connection reset"))
			},
			want:    []Notification{},
			wantErr: errors.New("notifications list: connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := new(MockRepository)
			tt.setupMock(repo)

			got, err := quietGateway(repo).ListMine(context.Background(), tt.userID, tt.limit)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.EqualError(t, err, tt.wantErr.Error())
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			repo.AssertExpectations(t)
		})
	}
}

func TestGateway_WithDefaultLimit(t *testing.T) {
	t.Parallel()

	repo := new(MockRepository)
	repo.On("List", mock.Anything, "u1", ListOptions{Limit: 5}).Return([]Notification{}, nil)

	_, err := quietGateway(repo, WithDefaultLimit(5)).ListMine(context.Background(), "u1", 0)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestGateway_Get(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		repo := new(MockRepository)
		repo.On("List", mock.Anything, "u1", ListOptions{Limit: 1, IDs: []string{"n1"}}).
			Return([]Notification{{ID: "n1", UserID: "u1", Message: "hi"}}, nil)

		got, err := quietGateway(repo).Get(context.Background(), "u1", "n1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "hi", got.Message)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		repo := new(MockRepository)
		repo.On("List", mock.Anything, "u1", mock.Anything).Return([]Notification{}, nil)

		got, err := quietGateway(repo).Get(context.Background(), "u1", "n1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing profile", func(t *testing.T) {
		t.Parallel()
		repo := new(MockRepository)
		repo.On("List", mock.Anything, "u1", mock.Anything).Return(nil, ErrProfileNotFound)

		got, err := quietGateway(repo).Get(context.Background(), "u1", "n1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("no identity", func(t *testing.T) {
		t.Parallel()
		repo := new(MockRepository)

		got, err := quietGateway(repo).Get(context.Background(), "", "n1")
		require.NoError(t, err)
		assert.Nil(t, got)
		repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()
		repo := new(MockRepository)
		repo.On("List", mock.Anything, "u1", mock.Anything).Return(nil, errors.New("boom"))

		got, err := quietGateway(repo).Get(context.Background(), "u1", "n1")
		require.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestGateway_CountUnread(t *testing.T) {
	t.Parallel()

	t.Run("count", func(t *testing.T) {
		t.Parallel()
		repo := new(MockRepository)
		repo.On("CountUnread", mock.Anything, "u1").Return(7, nil)

		n, err := quietGateway(repo).CountUnread(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("failure returns zero", func(t *testing.T) {
		t.Parallel()
		repo := new(MockRepository)
		repo.On("CountUnread", mock.Anything, "u1").Return(3, errors.New("timeout"))

		n, err := quietGateway(repo).CountUnread(context.Background(), "u1")
		require.Error(t, err)
		assert.Zero(t, n)
	})

	t.Run("no identity", func(t *testing.T) {
		t.Parallel()
		n, err := quietGateway(new(MockRepository)).CountUnread(context.Background(), "")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestGateway_Mutations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("MarkRead", mock.Anything, "u1", []string{"n1"}).Return(nil).Once()
	repo.On("MarkUnread", mock.Anything, "u1", []string{"n1"}).Return(nil).Once()
	repo.On("MarkAllRead", mock.Anything, "u1").Return(nil).Once()
	repo.On("Delete", mock.Anything, "u1", []string{"n1"}).Return(errors.New("gone")).Once()

	g := quietGateway(repo)
	require.NoError(t, g.MarkRead(ctx, "u1", "n1"))
	require.NoError(t, g.MarkUnread(ctx, "u1", "n1"))
	require.NoError(t, g.MarkAllRead(ctx, "u1"))

	err := g.DeleteOne(ctx, "u1", "n1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notifications delete")

	// empty ids never reach the repository
	require.NoError(t, g.MarkRead(ctx, "", "n1"))
	require.NoError(t, g.MarkUnread(ctx, "u1", ""))
	require.NoError(t, g.MarkAllRead(ctx, ""))
	require.NoError(t, g.DeleteOne(ctx, "u1", ""))

	repo.AssertExpectations(t)
}

type panickyRepository struct {
	MockRepository
}

func (*panickyRepository) List(context.Context, string, ListOptions) ([]Notification, error) {
	panic("nil map write")
}

func (*panickyRepository) MarkAllRead(context.Context, string) error {
	panic(errors.New("driver bug"))
}

func TestGateway_RecoversPanics(t *testing.T) {
	t.Parallel()

	g := quietGateway(&panickyRepository{})

	list, err := g.ListMine(context.Background(), "u1", 0)
	require.ErrorIs(t, err, ErrRepositoryPanic)
	assert.Empty(t, list)

	err = g.MarkAllRead(context.Background(), "u1")
	require.ErrorIs(t, err, ErrRepositoryPanic)
	assert.Contains(t, err.Error(), "driver bug")
}
