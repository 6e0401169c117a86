package realtime

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifsync/pkg/broadcast"
)

const (
	DefaultToastTitle    = "New notification"
	DefaultToastDuration = 5 * time.Second
)

// Toast is a transient in-app banner for a freshly merged notification.
type Toast struct {
	NotificationID string        `json:"notification_id"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	AvatarURL      string        `json:"avatar_url,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Toaster shows toasts. Notify must not block.
type Toaster interface {
	Notify(ctx context.Context, t Toast)
}

// NoOpToaster discards toasts.
type NoOpToaster struct{}

// Notify does nothing.
func (NoOpToaster) Notify(context.Context, Toast) {}

// BroadcastToaster fans toasts out to subscribers, for example an SSE
// stream per browser tab. Subscribers that fall behind miss toasts.
type BroadcastToaster struct {
	b *broadcast.MemoryBroadcaster[Toast]
}

// NewBroadcastToaster lets each subscriber lag bufferSize toasts.
func NewBroadcastToaster(bufferSize int) *BroadcastToaster {
	return &BroadcastToaster{b: broadcast.NewMemoryBroadcaster[Toast](bufferSize)}
}

// Notify sends toast to every subscriber without blocking.
func (t *BroadcastToaster) Notify(ctx context.Context, toast Toast) {
	_ = t.b.Broadcast(ctx, broadcast.Message[Toast]{Data: toast})
}

// Subscribe returns a subscriber bound to ctx.
func (t *BroadcastToaster) Subscribe(ctx context.Context) broadcast.Subscriber[Toast] {
	return t.b.Subscribe(ctx)
}

// Close ends every subscription.
func (t *BroadcastToaster) Close() error {
	return t.b.Close()
}
