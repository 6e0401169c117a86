package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrymomot/notifsync/pkg/notifications"
)

// NotificationsTable is the table whose inserts are pushed.
const NotificationsTable = "notifications"

// Topic names a stream of insert events for one owner.
type Topic struct {
	Table  string
	UserID string
}

// NotificationsTopic is the topic carrying userID's notification inserts.
func NotificationsTopic(userID string) Topic {
	return Topic{Table: NotificationsTable, UserID: userID}
}

// String returns the topic as table:user.
func (t Topic) String() string {
	return t.Table + ":" + t.UserID
}

func (t Topic) valid() bool {
	return t.Table != "" && t.UserID != ""
}

// Event is an insert announcement. It carries only the id and owner; the
// row itself must be re-read before use.
type Event struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

func decodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if ev.ID == "" || ev.UserID == "" {
		return Event{}, ErrMalformedEvent
	}
	return ev, nil
}

// Handler receives events for a subscription. Implementations must return
// quickly; channels call them from their delivery goroutine.
type Handler interface {
	OnInsert(ctx context.Context, ev Event)

	// OnReconnect is called after the channel recovered from a lost
	// connection. Events sent while disconnected are not replayed.
	OnReconnect(ctx context.Context)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Insert    func(ctx context.Context, ev Event)
	Reconnect func(ctx context.Context)
}

// OnInsert calls Insert when set.
func (h HandlerFuncs) OnInsert(ctx context.Context, ev Event) {
	if h.Insert != nil {
		h.Insert(ctx, ev)
	}
}

// OnReconnect calls Reconnect when set.
func (h HandlerFuncs) OnReconnect(ctx context.Context) {
	if h.Reconnect != nil {
		h.Reconnect(ctx)
	}
}

// Subscription is an active registration on a Channel.
type Subscription interface {
	// Unsubscribe stops delivery. Idempotent.
	Unsubscribe() error
}

// Channel delivers insert events for a topic. The subscription ends when
// Unsubscribe is called or ctx is done.
type Channel interface {
	Subscribe(ctx context.Context, topic Topic, h Handler) (Subscription, error)
}

// Publisher announces an insert on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, ev Event) error
}

// NewDeliverer turns a Publisher into a notifications.Deliverer, so a
// Dispatcher can announce the rows it stores.
func NewDeliverer(p Publisher) notifications.Deliverer {
	return publisherDeliverer{p: p}
}

type publisherDeliverer struct {
	p Publisher
}

func (d publisherDeliverer) Deliver(ctx context.Context, n notifications.Notification) error {
	return d.p.Publish(ctx, NotificationsTopic(n.UserID), Event{ID: n.ID, UserID: n.UserID})
}
