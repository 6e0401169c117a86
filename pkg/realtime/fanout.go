package realtime

import (
	"context"
	"sync"
	"time"
)

// fanout routes events from one shared upstream connection to the local
// subscribers of each topic.
type fanout struct {
	mu     sync.RWMutex
	topics map[string]map[*fanoutSub]struct{}
}

func newFanout() *fanout {
	return &fanout{topics: make(map[string]map[*fanoutSub]struct{})}
}

type fanoutSub struct {
	owner *fanout
	topic string
	h     Handler
	ctx   context.Context
	stop  context.CancelFunc
	once  sync.Once
}

func (s *fanoutSub) Unsubscribe() error {
	s.once.Do(func() {
		s.stop()
		s.owner.remove(s)
	})
	return nil
}

// add registers h on topic. The subscription also ends when ctx is done.
func (f *fanout) add(ctx context.Context, topic Topic, h Handler) *fanoutSub {
	sctx, stop := context.WithCancel(ctx)
	sub := &fanoutSub{owner: f, topic: topic.String(), h: h, ctx: sctx, stop: stop}

	f.mu.Lock()
	if f.topics[sub.topic] == nil {
		f.topics[sub.topic] = make(map[*fanoutSub]struct{})
	}
	f.topics[sub.topic][sub] = struct{}{}
	f.mu.Unlock()

	context.AfterFunc(sctx, func() { _ = sub.Unsubscribe() })
	return sub
}

func (f *fanout) remove(sub *fanoutSub) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs := f.topics[sub.topic]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(f.topics, sub.topic)
	}
}

func (f *fanout) snapshot(topic string) []*fanoutSub {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*fanoutSub, 0, len(f.topics[topic]))
	for sub := range f.topics[topic] {
		out = append(out, sub)
	}
	return out
}

// dispatch delivers ev to the subscribers of its owner's topic and reports
// how many received it.
func (f *fanout) dispatch(ev Event) int {
	subs := f.snapshot(NotificationsTopic(ev.UserID).String())
	for _, sub := range subs {
		if sub.ctx.Err() == nil {
			sub.h.OnInsert(sub.ctx, ev)
		}
	}
	return len(subs)
}

// reconnected tells every subscriber that events may have been missed.
func (f *fanout) reconnected() {
	f.mu.RLock()
	var subs []*fanoutSub
	for _, set := range f.topics {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	f.mu.RUnlock()

	for _, sub := range subs {
		if sub.ctx.Err() == nil {
			sub.h.OnReconnect(sub.ctx)
		}
	}
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	var subs []*fanoutSub
	for _, set := range f.topics {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	f.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
}

func (f *fanout) len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := 0
	for _, set := range f.topics {
		n += len(set)
	}
	return n
}

// Backoff computes reconnect delays: Min doubled per attempt, capped at Max.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// DefaultBackoff is used by channels that reconnect.
var DefaultBackoff = Backoff{Min: 500 * time.Millisecond, Max: 30 * time.Second}

// Delay returns the wait before attempt n, counting from zero.
func (b Backoff) Delay(attempt int) time.Duration {
	d := max(b.Min, time.Millisecond)
	for range attempt {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	return d
}

// sleep waits for d or until ctx is done, reporting whether the full
// delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
