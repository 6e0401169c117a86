// Package broadcast provides type-safe in-process fan-out of messages to
// many subscribers.
//
//	b := broadcast.NewMemoryBroadcaster[inbox.Snapshot](16)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	defer sub.Close()
//
//	_ = b.Broadcast(ctx, broadcast.Message[inbox.Snapshot]{Data: snap})
//	for msg := range sub.Receive() {
//		render(msg.Data)
//	}
//
// Broadcast never blocks: a subscriber with a full buffer misses the message
// and the miss is counted. Subscribers are removed when their context is
// cancelled, when they are closed, or when the broadcaster closes.
package broadcast
