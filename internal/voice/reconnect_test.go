package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestReconnector_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	attempts := 0
	connected := make(chan struct{})

	r := NewReconnector(ReconnectorConfig{
		Connect: func(_ context.Context) error {
			mu.Lock()
			attempts++
			n := attempts
			mu.Unlock()
			if n < 3 {
				return errors.New("still down")
			}
			close(connected)
			return nil
		},
		MaxRetries: 5,
		Backoff:    time.Millisecond,
		MaxBackoff: 4 * time.Millisecond,
	})
	defer r.Stop()

	r.Monitor(context.Background())
	r.NotifyDisconnect()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnection never succeeded")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestReconnector_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	attempts := 0

	r := NewReconnector(ReconnectorConfig{
		Connect: func(_ context.Context) error {
			mu.Lock()
			attempts++
			mu.Unlock()
			return errors.New("permanently down")
		},
		MaxRetries: 3,
		Backoff:    time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
	})
	defer r.Stop()

	r.Monitor(context.Background())
	r.NotifyDisconnect()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := attempts
		mu.Unlock()
		if n == 3 {
			// Give the loop a moment to prove it stops at the budget.
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			final := attempts
			mu.Unlock()
			if final != 3 {
				t.Fatalf("attempts = %d after budget exhausted, want 3", final)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("retry budget never consumed")
}

func TestReconnector_NotifyCoalesces(t *testing.T) {
	t.Parallel()
	r := NewReconnector(ReconnectorConfig{
		Connect: func(_ context.Context) error { return nil },
	})
	defer r.Stop()

	// Without a running monitor the buffered signal must not block.
	r.NotifyDisconnect()
	r.NotifyDisconnect()
	r.NotifyDisconnect()
}

func TestReconnector_StopHaltsMonitor(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	attempts := 0

	r := NewReconnector(ReconnectorConfig{
		Connect: func(_ context.Context) error {
			mu.Lock()
			attempts++
			mu.Unlock()
			return errors.New("down")
		},
		Backoff:    time.Millisecond,
		MaxBackoff: time.Millisecond,
	})

	r.Monitor(context.Background())
	r.Stop()
	r.Stop() // idempotent
	r.NotifyDisconnect()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if attempts != 0 {
		t.Errorf("attempts = %d after Stop, want 0", attempts)
	}
}

func TestReconnector_ContextCancelHaltsCycle(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	attempts := 0
	first := make(chan struct{})
	var once sync.Once

	r := NewReconnector(ReconnectorConfig{
		Connect: func(_ context.Context) error {
			mu.Lock()
			attempts++
			mu.Unlock()
			once.Do(func() { close(first) })
			return errors.New("down")
		},
		MaxRetries: 100,
		Backoff:    5 * time.Millisecond,
		MaxBackoff: 5 * time.Millisecond,
	})
	defer r.Stop()

	r.Monitor(ctx)
	r.NotifyDisconnect()

	<-first
	cancel()
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	seen := attempts
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if attempts != seen {
		t.Errorf("attempts kept growing after cancel: %d -> %d", seen, attempts)
	}
}
