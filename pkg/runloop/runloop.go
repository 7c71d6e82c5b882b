// Package runloop marshals work onto the controller goroutine.
//
// The style graph is mutated by exactly one goroutine. Network fetches and
// decoding run elsewhere and hand their results back by posting a task to the
// controller's [Loop]. A [Token] travels with each subscription so that a
// result arriving after its owner was torn down is dropped instead of
// touching replaced state.
//
//	loop := runloop.New()
//	tok := runloop.NewToken()
//	fetch(url, loop.Guard(tok, func() { tile.markLoaded() }))
//	...
//	tok.Revoke() // tile no longer needed; a late result is ignored
package runloop

import (
	"context"
	"sync"
	"sync/atomic"
)

// Loop is a FIFO task queue drained by a single controller goroutine.
// Post is safe from any goroutine; Run and RunPending must only be called
// from the controller.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues fn to run on the controller goroutine.
// Tasks posted after Close are discarded.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Guard returns a function that posts fn only while tok is alive. Liveness
// is checked again on the controller goroutine right before fn runs, because
// the owner may be revoked between posting and running.
func (l *Loop) Guard(tok *Token, fn func()) func() {
	return func() {
		if !tok.Alive() {
			return
		}
		l.Post(func() {
			if tok.Alive() {
				fn()
			}
		})
	}
}

// RunPending runs every task queued at the time of the call, plus tasks those
// tasks post, and returns the number executed.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Pending reports the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Wake returns a channel that receives a value whenever a task is posted.
// Controllers that multiplex other events select on it and call RunPending.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// Run drains tasks as they arrive until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close discards queued tasks and rejects new ones.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Token is a liveness flag shared between an owner and the callbacks it
// hands out. The zero value is not alive; use NewToken.
type Token struct {
	alive atomic.Bool
}

// NewToken returns a live token.
func NewToken() *Token {
	t := &Token{}
	t.alive.Store(true)
	return t
}

// Alive reports whether the owner still accepts callbacks.
// A nil token is never alive.
func (t *Token) Alive() bool {
	return t != nil && t.alive.Load()
}

// Revoke marks the owner as gone. It is idempotent.
func (t *Token) Revoke() {
	if t != nil {
		t.alive.Store(false)
	}
}
