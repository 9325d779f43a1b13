package event

import (
	"context"
	"sync"
	"time"

	"galebot/internal/logger"

	"github.com/tidwall/gjson"
)

// Predicate filters published payloads; a nil predicate matches everything.
type Predicate func(gjson.Result) bool

type waiter struct {
	pred Predicate
	ch   chan gjson.Result
}

// Bus is a keyed wait-registry: at most one outstanding wait per event name.
// Publishing to a name with no armed waiter drops the value; every wait
// consumes exactly one matching publish.
type Bus struct {
	mu      sync.Mutex
	waiters map[string]*waiter
}

func NewBus() *Bus {
	return &Bus{waiters: make(map[string]*waiter)}
}

// Publish hands payload to the waiter armed for name. A payload rejected by
// the waiter's predicate leaves the wait armed for the next publish.
func (b *Bus) Publish(name string, payload gjson.Result) {
	b.mu.Lock()
	w, ok := b.waiters[name]
	if !ok {
		b.mu.Unlock()
		return
	}
	if w.pred != nil && !w.pred(payload) {
		b.mu.Unlock()
		return
	}
	delete(b.waiters, name)
	b.mu.Unlock()
	w.ch <- payload
}

// Pending reports whether a wait is currently armed for name.
func (b *Bus) Pending(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.waiters[name]
	return ok
}

// Wait arms a waiter for name, then runs onStart (the triggering side effect,
// typically a network send), then blocks until a matching publish, the
// timeout, or ctx cancellation. The waiter is armed before onStart runs so a
// fast response cannot be lost. An absent response is a normal outcome: Wait
// returns ok=false, it never errors. A second wait on an already-armed name
// is rejected immediately.
func (b *Bus) Wait(ctx context.Context, name string, timeout time.Duration, onStart func(), pred Predicate) (gjson.Result, bool) {
	w := &waiter{pred: pred, ch: make(chan gjson.Result, 1)}

	b.mu.Lock()
	if _, busy := b.waiters[name]; busy {
		b.mu.Unlock()
		logger.Warnf("event: wait already pending for %q, rejecting", name)
		return gjson.Result{}, false
	}
	b.waiters[name] = w
	b.mu.Unlock()

	if onStart != nil {
		onStart()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-w.ch:
		return v, true
	case <-timer.C:
	case <-ctx.Done():
	}

	b.mu.Lock()
	if b.waiters[name] == w {
		delete(b.waiters, name)
		b.mu.Unlock()
		return gjson.Result{}, false
	}
	b.mu.Unlock()

	// The deadline raced a concurrent publish that had already claimed the
	// waiter; the value is sitting in the buffered channel.
	select {
	case v := <-w.ch:
		return v, true
	default:
		return gjson.Result{}, false
	}
}
