package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default reconnection parameters.
const (
	defaultMaxRetries = 10
	defaultBackoff    = 1 * time.Second
	defaultMaxBackoff = 30 * time.Second
)

// Reconnector re-establishes a dropped voice session with exponential
// backoff.
//
// Callers start the background monitor via [Reconnector.Monitor] and signal
// session loss via [Reconnector.NotifyDisconnect], typically from the
// controller's OnStateChange callback. The monitor then calls the configured
// Connect function until it succeeds or the retry budget is exhausted.
//
// All methods are safe for concurrent use.
type Reconnector struct {
	connect    func(ctx context.Context) error
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration

	done         chan struct{}
	stopOnce     sync.Once
	disconnected chan struct{} // signalled when a session loss is detected
}

// ReconnectorConfig configures a [Reconnector].
type ReconnectorConfig struct {
	// Connect attempts to establish a fresh session. Required. Typically
	// [Controller.Connect].
	Connect func(ctx context.Context) error

	// MaxRetries is the maximum number of attempts per reconnection cycle
	// before giving up. Defaults to 10 if zero.
	MaxRetries int

	// Backoff is the initial delay between attempts. Doubles each attempt up
	// to MaxBackoff. Defaults to 1s if zero.
	Backoff time.Duration

	// MaxBackoff is the upper limit on the backoff delay. Defaults to 30s if
	// zero.
	MaxBackoff time.Duration
}

// NewReconnector creates a [Reconnector] with the given configuration.
func NewReconnector(cfg ReconnectorConfig) *Reconnector {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	return &Reconnector{
		connect:      cfg.Connect,
		maxRetries:   maxRetries,
		backoff:      backoff,
		maxBackoff:   maxBackoff,
		done:         make(chan struct{}),
		disconnected: make(chan struct{}, 1),
	}
}

// Monitor starts watching for disconnect signals in a background goroutine.
// The goroutine exits when ctx is cancelled or [Reconnector.Stop] is called.
func (r *Reconnector) Monitor(ctx context.Context) {
	go r.monitorLoop(ctx)
}

// NotifyDisconnect signals the monitor that the session has been lost and
// reconnection should be attempted. Safe to call multiple times; only the
// first call per reconnection cycle has effect.
func (r *Reconnector) NotifyDisconnect() {
	select {
	case r.disconnected <- struct{}{}:
	default:
		// Already signalled; avoid blocking.
	}
}

// Stop halts monitoring. Safe to call multiple times.
func (r *Reconnector) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// monitorLoop waits for disconnect notifications and runs reconnection
// cycles.
func (r *Reconnector) monitorLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-r.disconnected:
			r.attemptReconnect(ctx)
		}
	}
}

// attemptReconnect tries to establish a fresh session with exponential
// backoff.
func (r *Reconnector) attemptReconnect(ctx context.Context) {
	currentBackoff := r.backoff

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		default:
		}

		slog.Info("attempting session reconnection",
			"attempt", attempt,
			"max_retries", r.maxRetries,
			"backoff", currentBackoff,
		)

		err := r.connect(ctx)
		if err == nil {
			slog.Info("session reconnection successful", "attempt", attempt)
			return
		}
		slog.Warn("session reconnection attempt failed",
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-time.After(currentBackoff):
		}

		currentBackoff *= 2
		if currentBackoff > r.maxBackoff {
			currentBackoff = r.maxBackoff
		}
	}

	slog.Error("session reconnection failed after max retries",
		"max_retries", r.maxRetries,
	)
}
