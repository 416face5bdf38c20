// Package voice orchestrates the full duplex pipeline: microphone capture
// feeding the realtime channel, and inbound audio deltas feeding ordered
// playback.
//
// The [Controller] owns the session lifecycle. Connect dials the channel,
// starts capture, and wires inbound events to the playback queue; Disconnect
// tears everything down in a fixed order so no goroutine outlives the
// session. A [Reconnector] can be layered on top to re-establish dropped
// sessions with exponential backoff.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/perimetra/voxwire/internal/observe"
	"github.com/perimetra/voxwire/pkg/audio"
	"github.com/perimetra/voxwire/pkg/audio/capture"
	"github.com/perimetra/voxwire/pkg/audio/playback"
	"github.com/perimetra/voxwire/pkg/realtime"
)

// defaultConnectTimeout bounds session establishment when the config does not
// specify one.
const defaultConnectTimeout = 15 * time.Second

// Channel is the duplex session surface the controller drives. Satisfied by
// [*realtime.Session].
type Channel interface {
	AppendAudio(encoded string) error
	SendText(text string) error
	Open() bool
	State() realtime.State
	Close() error
}

// Dialer establishes realtime sessions. Use [NewDialer] to wrap a
// [*realtime.Client]; tests supply their own implementation.
type Dialer interface {
	Connect(ctx context.Context, cfg realtime.SessionConfig) (Channel, error)
}

// Microphone is the capture surface the controller drives. Satisfied by
// [*capture.Source].
type Microphone interface {
	Start(handler capture.FrameHandler) error
	Stop()
}

// clientDialer adapts [*realtime.Client] to the [Dialer] interface.
type clientDialer struct {
	c *realtime.Client
}

// NewDialer wraps a realtime client as a [Dialer].
func NewDialer(c *realtime.Client) Dialer {
	return clientDialer{c: c}
}

func (d clientDialer) Connect(ctx context.Context, cfg realtime.SessionConfig) (Channel, error) {
	sess, err := d.c.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Config assembles a [Controller]'s collaborators and session parameters.
type Config struct {
	// Dialer establishes the realtime session. Required.
	Dialer Dialer

	// Mic is the microphone source started on connect. Required.
	Mic Microphone

	// Player renders decoded audio. The controller wraps it in a playback
	// queue so inbound chunks play strictly in arrival order. Required.
	Player playback.Player

	// Voice and Instructions are forwarded to the session.
	Voice        string
	Instructions string

	// ConnectTimeout bounds session establishment. Zero means
	// [defaultConnectTimeout].
	ConnectTimeout time.Duration

	// OnStateChange is notified with true when a session opens and false when
	// it ends, whether by [Controller.Disconnect] or remote close. May be nil.
	OnStateChange func(connected bool)

	// OnMessage receives every well-formed inbound envelope. May be nil.
	OnMessage func(evt realtime.ServerEvent)

	// Metrics records pipeline instrumentation. When nil,
	// [observe.DefaultMetrics] is used.
	Metrics *observe.Metrics
}

// Controller drives one voice session at a time. Safe for concurrent use.
// After [Controller.Disconnect] the controller is spent; create a new one for
// a fresh session.
type Controller struct {
	cfg     Config
	queue   *playback.Queue
	metrics *observe.Metrics

	mu      sync.Mutex
	session Channel
	closed  bool
}

var _ Channel = (*realtime.Session)(nil)
var _ Microphone = (*capture.Source)(nil)

// NewController creates a controller from cfg. Panics if a required
// collaborator is missing; that is a programming error, not a runtime
// condition.
func NewController(cfg Config) *Controller {
	if cfg.Dialer == nil || cfg.Mic == nil || cfg.Player == nil {
		panic("voice: Controller requires Dialer, Mic, and Player")
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}

	c := &Controller{cfg: cfg, metrics: m}
	c.queue = playback.New(cfg.Player,
		playback.WithFailureHandler(func(err error) {
			m.PlaybackFailures.Add(context.Background(), 1)
		}),
		playback.WithCompletionHandler(func() {
			m.PlaybackQueueDepth.Add(context.Background(), -1)
		}),
	)
	return c
}

// Connect establishes the realtime session and starts microphone capture.
// The dial is bounded by the configured connect timeout regardless of ctx.
// Returns an error if a session is already active or the controller was
// disconnected.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("voice: controller is disconnected")
	}
	if c.session != nil && c.session.Open() {
		c.mu.Unlock()
		return errors.New("voice: session already active")
	}
	c.mu.Unlock()

	timeout := c.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	spanCtx, span := observe.StartSpan(dialCtx, "voice.connect")
	defer span.End()

	start := time.Now()
	sess, err := c.cfg.Dialer.Connect(spanCtx, realtime.SessionConfig{
		Voice:        c.cfg.Voice,
		Instructions: c.cfg.Instructions,
		OnAudio:      c.handleAudio,
		OnMessage:    c.cfg.OnMessage,
		OnClose:      c.handleRemoteClose,
		OnParseError: func(error) {
			c.metrics.ParseFailures.Add(context.Background(), 1)
		},
	})
	if err != nil {
		c.metrics.RecordConnect(ctx, time.Since(start).Seconds(), "error")
		return fmt.Errorf("voice: connect: %w", err)
	}
	c.metrics.RecordConnect(ctx, time.Since(start).Seconds(), "ok")

	c.mu.Lock()
	if c.closed {
		// Disconnect raced the dial; the new session must not survive it.
		c.mu.Unlock()
		sess.Close()
		return errors.New("voice: controller is disconnected")
	}
	c.session = sess
	c.mu.Unlock()

	if err := c.cfg.Mic.Start(c.handleFrame); err != nil {
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		sess.Close()
		return fmt.Errorf("voice: start capture: %w", err)
	}

	c.metrics.ActiveSessions.Add(context.Background(), 1)
	c.notifyState(true)
	observe.Logger(spanCtx).Info("voice session established", "voice", c.cfg.Voice)
	return nil
}

// handleFrame ships one capture frame to the channel. Frames arriving while
// the channel is not open are counted and discarded; audio has no meaning
// outside a live session.
func (c *Controller) handleFrame(frame audio.Frame) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if sess == nil || !sess.Open() {
		c.metrics.DroppedFrames.Add(context.Background(), 1)
		return
	}

	if err := sess.AppendAudio(audio.EncodeBase64PCM16(frame)); err != nil {
		c.metrics.DroppedFrames.Add(context.Background(), 1)
		slog.Debug("audio append failed, frame dropped", "err", err)
		return
	}
	c.metrics.AudioChunksSent.Add(context.Background(), 1)
}

// handleAudio queues one decoded inbound PCM chunk for ordered playback.
func (c *Controller) handleAudio(pcm []byte) {
	c.metrics.AudioChunksReceived.Add(context.Background(), 1)
	c.metrics.PlaybackQueueDepth.Add(context.Background(), 1)
	c.queue.Enqueue(pcm)
}

// handleRemoteClose reacts to the session ending without a local Disconnect:
// capture stops, queued audio is dropped, and the application is notified.
// The player stays open so a reconnect can reuse it.
func (c *Controller) handleRemoteClose(err error) {
	c.mu.Lock()
	hadSession := c.session != nil
	c.session = nil
	c.mu.Unlock()
	if !hadSession {
		return
	}

	c.cfg.Mic.Stop()
	c.queue.Clear()
	c.metrics.ActiveSessions.Add(context.Background(), -1)
	slog.Warn("voice session lost", "err", err)
	c.notifyState(false)
}

// SendText injects a user text message into the conversation. Fails with
// [realtime.ErrNotConnected] when no session is active.
func (c *Controller) SendText(text string) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		return fmt.Errorf("voice: send text: %w", realtime.ErrNotConnected)
	}
	return sess.SendText(text)
}

// State reports the current session lifecycle state for health reporting.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return realtime.StateIdle.String()
	}
	return c.session.State().String()
}

// Connected reports whether a session is currently open.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	return sess != nil && sess.Open()
}

// Disconnect tears the session down: capture stops first so no new frames
// enter the pipeline, queued audio is dropped, the player is released, and
// finally the channel closes. Idempotent, and safe to call before Connect or
// while a dial is in flight.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	c.cfg.Mic.Stop()
	c.queue.Clear()

	var errs []error
	if err := c.cfg.Player.Close(); err != nil {
		errs = append(errs, fmt.Errorf("voice: close player: %w", err))
	}
	if sess != nil {
		if err := sess.Close(); err != nil {
			errs = append(errs, fmt.Errorf("voice: close session: %w", err))
		}
		c.metrics.ActiveSessions.Add(context.Background(), -1)
		c.notifyState(false)
	}
	slog.Info("voice session disconnected")
	return errors.Join(errs...)
}

func (c *Controller) notifyState(connected bool) {
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(connected)
	}
}
