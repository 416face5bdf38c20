package realtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

const (
	defaultModel   = "gpt-4o-realtime-preview"
	defaultBaseURL = "wss://api.openai.com/v1/realtime"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithModel sets the model requested for new sessions.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// Client dials duplex sessions against a fixed realtime endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
}

// NewClient creates a Client with the given API key and options.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SessionConfig carries the per-session parameters and the handlers invoked
// from the session's receive goroutine. Handlers run sequentially in event
// arrival order and must not block; all of them may be nil.
type SessionConfig struct {
	// Voice selects the synthesised voice for audio responses.
	Voice string

	// Instructions is the system-level prompt applied via session.update.
	Instructions string

	// OnAudio receives the decoded PCM16 payload of each audio delta.
	OnAudio func(pcm []byte)

	// OnMessage receives every well-formed inbound envelope, including audio
	// and transcript deltas and any type the client does not recognise.
	OnMessage func(evt ServerEvent)

	// OnClose is invoked exactly once when the session leaves the open state
	// for any reason other than a local Close call: transport error or
	// remote-initiated close. err describes the cause.
	OnClose func(err error)

	// OnParseError is invoked for each inbound envelope that fails to parse.
	// Parsing failures never close the session.
	OnParseError func(err error)
}

// Connect dials the realtime endpoint and returns an open session. The
// supplied ctx bounds the dial only; session lifetime is governed by
// [Session.Close]. On success a session.update event configuring voice,
// instructions, and pcm16 audio formats has already been sent.
func (c *Client) Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	wsURL := fmt.Sprintf("%s?model=%s", c.baseURL, c.model)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + c.apiKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: dial: %w", err)
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	sess := &Session{
		conn:   conn,
		cfg:    cfg,
		state:  StateOpen,
		ctx:    sessCtx,
		cancel: sessCancel,
	}

	if err := sess.sendSessionUpdate(cfg.Voice, cfg.Instructions); err != nil {
		sessCancel()
		conn.Close(websocket.StatusInternalError, "session update failed")
		return nil, fmt.Errorf("realtime: session update: %w", err)
	}

	go sess.receiveLoop()

	return sess, nil
}
