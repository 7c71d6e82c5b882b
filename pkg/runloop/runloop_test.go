package runloop

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRunPendingOrder(t *testing.T) {
	l := New()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}

	if n := l.RunPending(); n != 5 {
		t.Fatalf("RunPending() = %d, want 5", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", got)
		}
	}
}

func TestRunPendingRunsNestedPosts(t *testing.T) {
	l := New()
	ran := false
	l.Post(func() {
		l.Post(func() { ran = true })
	})

	if n := l.RunPending(); n != 2 {
		t.Errorf("RunPending() = %d, want 2", n)
	}
	if !ran {
		t.Error("nested task did not run")
	}
}

func TestPostFromManyGoroutines(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	count := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() { count++ })
		}()
	}
	wg.Wait()
	l.RunPending()

	if count != 50 {
		t.Errorf("count = %d, want 50", count)
	}
}

func TestGuardDropsRevokedCallbacks(t *testing.T) {
	l := New()
	tok := NewToken()
	calls := 0
	cb := l.Guard(tok, func() { calls++ })

	cb()
	l.RunPending()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Posted while alive, revoked before running.
	cb()
	tok.Revoke()
	l.RunPending()
	if calls != 1 {
		t.Errorf("revoked callback ran: calls = %d", calls)
	}

	// Posted after revocation.
	cb()
	if l.Pending() != 0 {
		t.Error("revoked token should not enqueue")
	}
}

func TestNilTokenIsNotAlive(t *testing.T) {
	var tok *Token
	if tok.Alive() {
		t.Error("nil token should not be alive")
	}
	tok.Revoke()
}

func TestRunStopsOnContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task was not run")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCloseDiscardsTasks(t *testing.T) {
	l := New()
	l.Post(func() { t.Error("task should have been discarded") })
	l.Close()
	l.Post(func() { t.Error("task posted after close should be discarded") })

	if n := l.RunPending(); n != 0 {
		t.Errorf("RunPending() = %d, want 0", n)
	}
	if err := l.Run(context.Background()); err != nil {
		t.Errorf("Run() on closed loop = %v, want nil", err)
	}
}
