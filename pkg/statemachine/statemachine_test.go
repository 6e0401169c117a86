package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifsync/pkg/statemachine"
)

const (
	idle        = statemachine.StringState("idle")
	subscribing = statemachine.StringState("subscribing")
	subscribed  = statemachine.StringState("subscribed")
	closed      = statemachine.StringState("closed")

	start    = statemachine.StringEvent("start")
	ready    = statemachine.StringEvent("ready")
	failed   = statemachine.StringEvent("failed")
	shutdown = statemachine.StringEvent("close")
)

func lifecycle(t *testing.T, opts ...statemachine.Option) *statemachine.Machine {
	t.Helper()
	base := []statemachine.Option{
		statemachine.WithTransition(idle, subscribing, start),
		statemachine.WithTransition(subscribing, subscribed, ready),
		statemachine.WithTransition(subscribing, idle, failed),
		statemachine.WithTransition(idle, closed, shutdown),
		statemachine.WithTransition(subscribing, closed, shutdown),
		statemachine.WithTransition(subscribed, closed, shutdown),
	}
	m, err := statemachine.New(idle, append(base, opts...)...)
	require.NoError(t, err)
	return m
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()
		m := lifecycle(t)
		require.NoError(t, m.Fire(ctx, start))
		require.NoError(t, m.Fire(ctx, ready))
		assert.True(t, m.Is(subscribed))
		require.NoError(t, m.Fire(ctx, shutdown))
		assert.Equal(t, closed, m.Current())
	})

	t.Run("failure returns to idle", func(t *testing.T) {
		t.Parallel()
		m := lifecycle(t)
		require.NoError(t, m.Fire(ctx, start))
		require.NoError(t, m.Fire(ctx, failed))
		assert.True(t, m.Is(idle))
	})

	t.Run("undefined transition", func(t *testing.T) {
		t.Parallel()
		m := lifecycle(t)
		err := m.Fire(ctx, ready)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.False(t, m.CanFire(ctx, ready))
		assert.True(t, m.Is(idle))
	})

	t.Run("closed is terminal", func(t *testing.T) {
		t.Parallel()
		m := lifecycle(t)
		require.NoError(t, m.Fire(ctx, shutdown))
		for _, e := range []statemachine.Event{start, ready, failed, shutdown} {
			assert.Error(t, m.Fire(ctx, e))
		}
	})

	t.Run("nil event", func(t *testing.T) {
		t.Parallel()
		m := lifecycle(t)
		assert.ErrorIs(t, m.Fire(ctx, nil), statemachine.ErrInvalidEvent)
		assert.False(t, m.CanFire(ctx, nil))
	})
}

func TestMachine_GuardsAndActions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("guard rejects", func(t *testing.T) {
		t.Parallel()
		allow := atomic.Bool{}
		m := statemachine.MustNew(idle,
			statemachine.WithTransition(idle, subscribing, start,
				statemachine.WithGuard(func(context.Context, statemachine.State, statemachine.Event) bool {
					return allow.Load()
				}),
			),
		)

		err := m.Fire(ctx, start)
		assert.True(t, statemachine.IsTransitionRejectedError(err))
		assert.False(t, m.CanFire(ctx, start))

		allow.Store(true)
		assert.True(t, m.CanFire(ctx, start))
		require.NoError(t, m.Fire(ctx, start))
	})

	t.Run("first passing guard wins", func(t *testing.T) {
		t.Parallel()
		never := func(context.Context, statemachine.State, statemachine.Event) bool { return false }
		m := statemachine.MustNew(idle,
			statemachine.WithTransition(idle, closed, start, statemachine.WithGuard(never)),
			statemachine.WithTransition(idle, subscribing, start),
		)
		require.NoError(t, m.Fire(ctx, start))
		assert.True(t, m.Is(subscribing))
	})

	t.Run("action error aborts", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		m := statemachine.MustNew(idle,
			statemachine.WithTransition(idle, subscribing, start,
				statemachine.WithAction(func(context.Context, statemachine.State, statemachine.State, statemachine.Event) error {
					return boom
				}),
			),
		)
		assert.ErrorIs(t, m.Fire(ctx, start), boom)
		assert.True(t, m.Is(idle))
	})
}

func TestMachine_Hooks(t *testing.T) {
	t.Parallel()

	var got []string
	var m *statemachine.Machine
	m = lifecycle(t, statemachine.WithHook(func(from, to statemachine.State, _ statemachine.Event) {
		// reading the machine from a hook must not deadlock
		assert.Equal(t, to, m.Current())
		got = append(got, from.Name()+"->"+to.Name())
	}))

	ctx := context.Background()
	require.NoError(t, m.Fire(ctx, start))
	require.NoError(t, m.Fire(ctx, ready))
	assert.Equal(t, []string{"idle->subscribing", "subscribing->subscribed"}, got)

	m.Reset()
	assert.True(t, m.Is(idle))
	assert.Len(t, got, 2)
}

func TestMachine_Construction(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(nil)
	assert.Error(t, err)

	_, err = statemachine.New(idle, statemachine.WithTransition(idle, nil, start))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	assert.Panics(t, func() {
		statemachine.MustNew(idle, statemachine.WithTransition(nil, idle, start))
	})
}

func TestMachine_Concurrent(t *testing.T) {
	t.Parallel()
	m := lifecycle(t)
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Fire(ctx, start) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.True(t, m.Is(subscribing))
}
