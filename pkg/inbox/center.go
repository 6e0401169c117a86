package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifsync/pkg/async"
	"github.com/dmitrymomot/notifsync/pkg/broadcast"
	"github.com/dmitrymomot/notifsync/pkg/i18n"
	"github.com/dmitrymomot/notifsync/pkg/identity"
	"github.com/dmitrymomot/notifsync/pkg/logger"
	"github.com/dmitrymomot/notifsync/pkg/notifications"
	"github.com/dmitrymomot/notifsync/pkg/realtime"
)

// Ledger is the device-local read state a Center needs.
// *ledger.Ledger implements it.
type Ledger interface {
	notifications.ReadLedger
	SaveVisit()
}

// Snapshot is what a UI renders: the store state plus the localized
// new-since-last-visit line.
type Snapshot struct {
	notifications.State
	NewSinceLastVisitMessage string `json:"new_since_last_visit_message"`
}

// Center is the single entry point a UI talks to. It composes the ledger,
// gateway, store and realtime ingestor for one user.
//
// The user is resolved once per call through the Resolver and passed down
// explicitly. Mutations made before the first Load are allowed and apply to
// whatever is in the list.
type Center struct {
	resolver   identity.Resolver
	ledger     Ledger
	store      *notifications.Store
	ingestor   *realtime.Ingestor
	translator *i18n.Translator
	lang       string
	updates    *broadcast.MemoryBroadcaster[Snapshot]
	toasts     *realtime.BroadcastToaster
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

type config struct {
	resolver     identity.Resolver
	translator   *i18n.Translator
	lang         string
	logger       *slog.Logger
	bufferSize   int
	toastTTL     time.Duration
	storeOpts    []notifications.StoreOption
	ingestorOpts []realtime.IngestorOption
}

// Option configures a Center.
type Option func(*config)

// WithResolver sets how the current user is found. Defaults to
// identity.ContextResolver.
func WithResolver(r identity.Resolver) Option {
	return func(c *config) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithTranslator replaces the built-in translations.
func WithTranslator(t *i18n.Translator) Option {
	return func(c *config) {
		if t != nil {
			c.translator = t
		}
	}
}

// WithLanguage sets the language of generated messages. Defaults to es.
func WithLanguage(lang string) Option {
	return func(c *config) {
		if lang != "" {
			c.lang = lang
		}
	}
}

// WithLogger sets the Center logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUpdateBuffer sets how many snapshots a slow subscriber may lag.
func WithUpdateBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithToastDuration sets how long live-insert banners stay on screen.
func WithToastDuration(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.toastTTL = d
		}
	}
}

// WithStoreOptions passes extra options to the underlying store.
func WithStoreOptions(opts ...notifications.StoreOption) Option {
	return func(c *config) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

// WithIngestorOptions passes extra options to the realtime ingestor.
func WithIngestorOptions(opts ...realtime.IngestorOption) Option {
	return func(c *config) {
		c.ingestorOpts = append(c.ingestorOpts, opts...)
	}
}

// NewCenter wires a Center. Call Start to begin receiving live inserts.
func NewCenter(gateway *notifications.Gateway, channel realtime.Channel, ledger Ledger, opts ...Option) (*Center, error) {
	switch {
	case gateway == nil:
		return nil, ErrMissingGateway
	case channel == nil:
		return nil, ErrMissingChannel
	case ledger == nil:
		return nil, ErrMissingLedger
	}

	cfg := &config{
		resolver:   identity.ContextResolver,
		lang:       DefaultLanguage,
		logger:     slog.Default(),
		bufferSize: 16,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.translator == nil {
		t, err := Translator()
		if err != nil {
			return nil, fmt.Errorf("inbox: loading translations: %w", err)
		}
		cfg.translator = t
	}
	lang := cfg.translator.Match(cfg.lang)

	c := &Center{
		resolver:   cfg.resolver,
		ledger:     ledger,
		translator: cfg.translator,
		lang:       lang,
		updates:    broadcast.NewMemoryBroadcaster[Snapshot](cfg.bufferSize),
		toasts:     realtime.NewBroadcastToaster(cfg.bufferSize),
		logger:     cfg.logger.With(logger.Component("inbox.center")),
	}

	storeOpts := append([]notifications.StoreOption{
		notifications.WithStoreLogger(cfg.logger),
		notifications.WithChangeHandler(c.publish),
	}, cfg.storeOpts...)
	c.store = notifications.NewStore(gateway, ledger, storeOpts...)

	ingestorOpts := append([]realtime.IngestorOption{
		realtime.WithIngestorLogger(cfg.logger),
		realtime.WithToastDefaults(cfg.translator.T(lang, keyToastTitle), cfg.toastTTL),
		realtime.WithResync(c.resync),
		realtime.WithToaster(c.toasts),
	}, cfg.ingestorOpts...)
	ingestor, err := realtime.NewIngestor(channel, gateway, c.store, ingestorOpts...)
	if err != nil {
		return nil, err
	}
	c.ingestor = ingestor

	return c, nil
}

func (c *Center) publish(s notifications.State) {
	_ = c.updates.Broadcast(context.Background(), broadcast.Message[Snapshot]{Data: c.snapshot(s)})
}

func (c *Center) snapshot(s notifications.State) Snapshot {
	return Snapshot{
		State:                    s,
		NewSinceLastVisitMessage: newSinceVisitMessage(c.translator, c.lang, s.NewSinceLastVisit),
	}
}

// currentUser resolves the user. A resolver failure counts as signed out.
func (c *Center) currentUser(ctx context.Context) string {
	userID, err := c.resolver.CurrentUserID(ctx)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelDebug, "identity unavailable", logger.Error(err))
		return ""
	}
	return userID
}

// Start subscribes to realtime inserts for the current user. Without a
// user it does nothing.
func (c *Center) Start(ctx context.Context) error {
	if c.isClosed() {
		return ErrCenterClosed
	}
	return c.ingestor.Start(ctx, c.currentUser(ctx))
}

// Load refreshes the list and the server unread count concurrently. The
// list always ends up loaded (possibly empty); the returned error only
// reports a failed count refresh.
func (c *Center) Load(ctx context.Context) error {
	if c.isClosed() {
		return ErrCenterClosed
	}
	return c.load(ctx, c.currentUser(ctx))
}

func (c *Center) load(ctx context.Context, userID string) error {
	list := async.Async(ctx, userID, func(ctx context.Context, userID string) (struct{}, error) {
		c.store.Load(ctx, userID)
		return struct{}{}, nil
	})
	count := async.Async(ctx, userID, func(ctx context.Context, userID string) (struct{}, error) {
		return struct{}{}, c.store.RefreshUnreadCount(ctx, userID)
	})
	_, err := async.WaitAll(list, count)
	return err
}

// Resync reloads everything. The ingestor calls it after a reconnect.
func (c *Center) Resync(ctx context.Context) error {
	return c.Load(ctx)
}

func (c *Center) resync(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "resync after reconnect failed", logger.Error(err))
	}
}

// MarkRead marks id read for the current user.
func (c *Center) MarkRead(ctx context.Context, id string) error {
	return c.store.MarkRead(ctx, c.currentUser(ctx), id)
}

// MarkUnread marks id unread for the current user.
func (c *Center) MarkUnread(ctx context.Context, id string) error {
	return c.store.MarkUnread(ctx, c.currentUser(ctx), id)
}

// MarkAllRead marks every notification of the current user read.
func (c *Center) MarkAllRead(ctx context.Context) error {
	return c.store.MarkAllRead(ctx, c.currentUser(ctx))
}

// Remove deletes id for the current user.
func (c *Center) Remove(ctx context.Context, id string) error {
	return c.store.Remove(ctx, c.currentUser(ctx), id)
}

// RecordVisit stores now as the last visit and clears the new counter.
func (c *Center) RecordVisit() {
	c.ledger.SaveVisit()
	c.store.ResetNewSinceLastVisit()
}

// EnterNotificationsView marks the user as looking at the list, so live
// inserts do not count as new.
func (c *Center) EnterNotificationsView() {
	c.store.SetVisiting(true)
}

// LeaveNotificationsView ends the view started by EnterNotificationsView.
func (c *Center) LeaveNotificationsView() {
	c.store.SetVisiting(false)
}

// MarkFollowingSender updates the follow hint after the user followed
// senderID elsewhere in the app.
func (c *Center) MarkFollowingSender(senderID string) {
	c.store.MarkFollowingSender(senderID)
}

// Snapshot returns a copy of the current state.
func (c *Center) Snapshot() Snapshot {
	return c.snapshot(c.store.Snapshot())
}

// Notifications returns the list, newest first.
func (c *Center) Notifications() []notifications.Notification {
	return c.store.Snapshot().Notifications
}

// UnreadCount is the number of unread entries in the list.
func (c *Center) UnreadCount() int {
	return c.store.Snapshot().UnreadCount
}

// BadgeCount is the unread count reported by the server.
func (c *Center) BadgeCount() int {
	return c.store.Snapshot().BadgeCount
}

// NewSinceLastVisit is the number of entries that arrived since the last visit.
func (c *Center) NewSinceLastVisit() int {
	return c.store.Snapshot().NewSinceLastVisit
}

// NewSinceLastVisitMessage is the localized new counter, empty when zero.
func (c *Center) NewSinceLastVisitMessage() string {
	return c.Snapshot().NewSinceLastVisitMessage
}

// Loading reports whether a load is in flight.
func (c *Center) Loading() bool {
	return c.store.Snapshot().Loading
}

// Subscribe streams a Snapshot after every change until ctx is done.
// Slow subscribers miss intermediate snapshots, never the connection.
func (c *Center) Subscribe(ctx context.Context) broadcast.Subscriber[Snapshot] {
	return c.updates.Subscribe(ctx)
}

// SubscribeToasts streams the banners for live inserts until ctx is done.
func (c *Center) SubscribeToasts(ctx context.Context) broadcast.Subscriber[realtime.Toast] {
	return c.toasts.Subscribe(ctx)
}

// Close stops realtime ingestion and ends every subscription. Idempotent.
func (c *Center) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.ingestor.Close()
	_ = c.updates.Close()
	_ = c.toasts.Close()
	return err
}

func (c *Center) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
