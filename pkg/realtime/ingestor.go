package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifsync/pkg/async"
	"github.com/dmitrymomot/notifsync/pkg/logger"
	"github.com/dmitrymomot/notifsync/pkg/notifications"
	"github.com/dmitrymomot/notifsync/pkg/statemachine"
)

// Ingestor lifecycle states.
var (
	StateIdle        = statemachine.StringState("idle")
	StateSubscribing = statemachine.StringState("subscribing")
	StateSubscribed  = statemachine.StringState("subscribed")
	StateClosed      = statemachine.StringState("closed")
)

var (
	eventSubscribe  = statemachine.StringEvent("subscribe")
	eventSubscribed = statemachine.StringEvent("subscribed")
	eventFailed     = statemachine.StringEvent("subscribe_failed")
	eventClose      = statemachine.StringEvent("close")
)

// Hydrator re-reads a pushed row through the normal read path.
// *notifications.Gateway implements it.
type Hydrator interface {
	Get(ctx context.Context, userID, id string) (*notifications.Notification, error)
}

// Sink receives hydrated notifications. *notifications.Store implements it.
type Sink interface {
	Merge(n notifications.Notification) bool
	RefreshUnreadCount(ctx context.Context, userID string) error
}

// Ingestor turns push events for one user into store merges.
//
// Events are hints: each one is re-read through the Hydrator, and only a
// row that exists and belongs to the subscribed user is merged. Anything
// else is dropped. After Close returns nothing more is merged.
type Ingestor struct {
	channel  Channel
	hydrator Hydrator
	sink     Sink
	toaster  Toaster
	metrics  *Metrics
	logger   *slog.Logger

	hydrationTimeout time.Duration
	toastTitle       string
	toastDuration    time.Duration
	resync           func(ctx context.Context)

	machine *statemachine.Machine

	mu        sync.Mutex // apply lock
	cancelled bool
	userID    string
	sub       Subscription
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithHydrationTimeout bounds each re-read. Zero means no bound.
func WithHydrationTimeout(d time.Duration) IngestorOption {
	return func(i *Ingestor) {
		i.hydrationTimeout = d
	}
}

// WithToaster sets where banners for live inserts go.
func WithToaster(t Toaster) IngestorOption {
	return func(i *Ingestor) {
		if t != nil {
			i.toaster = t
		}
	}
}

// WithToastDefaults sets the title used when the sender is unknown and how
// long toasts stay up.
func WithToastDefaults(title string, d time.Duration) IngestorOption {
	return func(i *Ingestor) {
		if title != "" {
			i.toastTitle = title
		}
		if d > 0 {
			i.toastDuration = d
		}
	}
}

// WithResync registers fn to run after the channel reconnects. It should
// reload the full list, since missed events are not replayed.
func WithResync(fn func(ctx context.Context)) IngestorOption {
	return func(i *Ingestor) {
		i.resync = fn
	}
}

// WithMetrics records event counters in m.
func WithMetrics(m *Metrics) IngestorOption {
	return func(i *Ingestor) {
		i.metrics = m
	}
}

// WithIngestorLogger sets the ingestor logger.
func WithIngestorLogger(l *slog.Logger) IngestorOption {
	return func(i *Ingestor) {
		if l != nil {
			i.logger = l
		}
	}
}

// NewIngestor feeds inserts from channel, hydrated by hydrator, into sink.
func NewIngestor(channel Channel, hydrator Hydrator, sink Sink, opts ...IngestorOption) (*Ingestor, error) {
	if channel == nil || hydrator == nil || sink == nil {
		return nil, ErrMissingDependency
	}

	i := &Ingestor{
		channel:       channel,
		hydrator:      hydrator,
		sink:          sink,
		toaster:       NoOpToaster{},
		logger:        slog.Default(),
		toastTitle:    DefaultToastTitle,
		toastDuration: DefaultToastDuration,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With(logger.Component("realtime.ingestor"))

	machine, err := statemachine.New(StateIdle,
		statemachine.WithTransition(StateIdle, StateSubscribing, eventSubscribe),
		statemachine.WithTransition(StateSubscribing, StateSubscribed, eventSubscribed),
		statemachine.WithTransition(StateSubscribing, StateIdle, eventFailed),
		statemachine.WithTransition(StateIdle, StateClosed, eventClose),
		statemachine.WithTransition(StateSubscribing, StateClosed, eventClose),
		statemachine.WithTransition(StateSubscribed, StateClosed, eventClose),
		statemachine.WithHook(func(from, to statemachine.State, ev statemachine.Event) {
			i.logger.LogAttrs(context.Background(), slog.LevelDebug, "ingestor state changed",
				slog.String("from", from.Name()), logger.State(to.Name()), logger.Event(ev.Name()))
		}),
	)
	if err != nil {
		return nil, err
	}
	i.machine = machine
	return i, nil
}

// State returns the current lifecycle state.
func (i *Ingestor) State() statemachine.State {
	return i.machine.Current()
}

// Start subscribes to userID's inserts. With no user it stays idle and
// returns nil. The subscription outlives ctx; it ends with Close.
func (i *Ingestor) Start(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	if err := i.machine.Fire(ctx, eventSubscribe); err != nil {
		if i.machine.Is(StateClosed) {
			return ErrIngestorClosed
		}
		return ErrAlreadyStarted
	}

	i.mu.Lock()
	if i.cancelled {
		i.mu.Unlock()
		return ErrIngestorClosed
	}
	i.userID = userID
	i.ctx, i.cancel = context.WithCancel(context.WithoutCancel(ctx))
	sctx := i.ctx
	i.mu.Unlock()

	topic := NotificationsTopic(userID)
	sub, err := i.channel.Subscribe(sctx, topic, HandlerFuncs{Insert: i.onInsert, Reconnect: i.onReconnect})
	if err != nil {
		_ = i.machine.Fire(ctx, eventFailed)
		i.mu.Lock()
		i.cancel()
		i.ctx, i.cancel = nil, nil
		i.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	i.mu.Lock()
	if i.cancelled {
		i.mu.Unlock()
		return sub.Unsubscribe()
	}
	i.sub = sub
	i.mu.Unlock()

	_ = i.machine.Fire(ctx, eventSubscribed)
	i.logger.LogAttrs(ctx, slog.LevelDebug, "subscribed", logger.UserID(userID), logger.Topic(topic.String()))
	return nil
}

func (i *Ingestor) onInsert(_ context.Context, ev Event) {
	i.metrics.incReceived()

	i.mu.Lock()
	if i.cancelled {
		i.mu.Unlock()
		i.metrics.incDropped(DropCancelled)
		return
	}
	userID, ctx := i.userID, i.ctx
	if ev.UserID != userID {
		i.mu.Unlock()
		i.drop(ctx, ev, DropForeign, nil)
		return
	}
	i.wg.Add(1)
	i.mu.Unlock()

	hctx, cancel := ctx, context.CancelFunc(func() {})
	if i.hydrationTimeout > 0 {
		hctx, cancel = context.WithTimeout(ctx, i.hydrationTimeout)
	}

	future := async.Async(hctx, ev, func(ctx context.Context, ev Event) (*notifications.Notification, error) {
		return i.hydrator.Get(ctx, userID, ev.ID)
	})

	go func() {
		defer i.wg.Done()
		defer cancel()

		n, err := future.Await()
		i.apply(ctx, userID, ev, n, err)
	}()
}

func (i *Ingestor) apply(ctx context.Context, userID string, ev Event, n *notifications.Notification, err error) {
	switch {
	case err != nil:
		i.drop(ctx, ev, DropHydrationFailed, err)
		return
	case n == nil:
		i.drop(ctx, ev, DropNotFound, nil)
		return
	case n.UserID != userID:
		i.drop(ctx, ev, DropOwnerMismatch, nil)
		return
	}

	i.mu.Lock()
	if i.cancelled {
		i.mu.Unlock()
		i.drop(ctx, ev, DropCancelled, nil)
		return
	}
	merged := i.sink.Merge(*n)
	i.mu.Unlock()

	if !merged {
		i.metrics.incDuplicate()
		return
	}
	i.metrics.incMerged()

	if err := i.sink.RefreshUnreadCount(ctx, userID); err != nil {
		i.logger.LogAttrs(ctx, slog.LevelDebug, "unread count refresh failed",
			logger.UserID(userID), logger.Error(err))
	}

	title := n.SenderName()
	if title == "" {
		title = i.toastTitle
	}
	toast := Toast{
		NotificationID: n.ID,
		Title:          title,
		Message:        n.Message,
		Duration:       i.toastDuration,
	}
	if n.Sender != nil {
		toast.AvatarURL = n.Sender.AvatarURL
	}
	i.toaster.Notify(ctx, toast)
}

func (i *Ingestor) drop(ctx context.Context, ev Event, reason string, err error) {
	i.metrics.incDropped(reason)
	i.logger.LogAttrs(ctx, slog.LevelDebug, "dropped insert event",
		logger.NotificationID(ev.ID), logger.UserID(ev.UserID),
		slog.String("reason", reason), logger.Error(err))
}

func (i *Ingestor) onReconnect(_ context.Context) {
	i.mu.Lock()
	if i.cancelled || i.resync == nil {
		i.mu.Unlock()
		return
	}
	ctx := i.ctx
	i.wg.Add(1)
	i.mu.Unlock()

	i.metrics.incReconnect()
	go func() {
		defer i.wg.Done()
		i.resync(ctx)
	}()
}

// Close unsubscribes and waits for in-flight hydrations, whose results are
// discarded. It is idempotent and must not be called from a resync hook.
func (i *Ingestor) Close() error {
	i.mu.Lock()
	if i.cancelled {
		i.mu.Unlock()
		return nil
	}
	i.cancelled = true
	sub, cancel := i.sub, i.cancel
	i.sub = nil
	i.mu.Unlock()

	_ = i.machine.Fire(context.Background(), eventClose)

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	i.wg.Wait()
	return err
}
