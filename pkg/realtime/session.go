package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Session is an open duplex channel. Outbound sends are valid only while the
// session is open; once it transitions to closed — locally or remotely — all
// sends fail with [ErrNotConnected]. Safe for concurrent use.
type Session struct {
	conn *websocket.Conn
	cfg  SessionConfig

	mu    sync.Mutex
	state State

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open reports whether outbound sends are currently valid.
func (s *Session) Open() bool {
	return s.State() == StateOpen
}

// AppendAudio sends one transport-encoded (base64 PCM16) audio chunk as an
// input_audio_buffer.append event.
func (s *Session) AppendAudio(encoded string) error {
	return s.send(appendAudioEvent{
		EventID: uuid.NewString(),
		Type:    "input_audio_buffer.append",
		Audio:   encoded,
	})
}

// SendText injects a user text message into the conversation and triggers a
// model response: a conversation.item.create event followed by a
// response.create event, as two discrete sends.
func (s *Session) SendText(text string) error {
	err := s.send(createItemEvent{
		EventID: uuid.NewString(),
		Type:    "conversation.item.create",
		Item: conversationItem{
			Type: "message",
			Role: "user",
			Content: []contentPart{
				{Type: "input_text", Text: text},
			},
		},
	})
	if err != nil {
		return err
	}
	return s.send(responseCreateEvent{
		EventID: uuid.NewString(),
		Type:    "response.create",
	})
}

// sendSessionUpdate configures voice, instructions, and audio formats.
func (s *Session) sendSessionUpdate(voice, instructions string) error {
	return s.send(sessionUpdateEvent{
		EventID: uuid.NewString(),
		Type:    "session.update",
		Session: sessionParams{
			Voice:             voice,
			Instructions:      instructions,
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
		},
	})
}

// send marshals v and writes it as a text frame. Fails with [ErrNotConnected]
// when the session is not open.
func (s *Session) send(v any) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrNotConnected, s.state)
	}
	s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("realtime: marshal: %w", err)
	}
	if err := s.conn.Write(s.ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("realtime: write: %w", err)
	}
	return nil
}

// receiveLoop reads envelopes until the transport fails or the session is
// closed locally. A read error while the session is still open means the
// remote side closed or the transport broke: the session transitions to
// closed and OnClose fires exactly once.
func (s *Session) receiveLoop() {
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				// Local Close cancelled the context; no callback.
				return
			}
			s.transitionClosed(err)
			return
		}
		s.dispatch(data)
	}
}

// dispatch parses one envelope and routes it. Parse failures are contained:
// logged, surfaced to OnParseError, and skipped.
func (s *Session) dispatch(data []byte) {
	var evt ServerEvent
	if err := json.Unmarshal(data, &evt); err != nil || evt.Type == "" {
		if err == nil {
			err = fmt.Errorf("realtime: envelope without type discriminator")
		}
		slog.Warn("malformed realtime envelope, skipping", "err", err)
		if s.cfg.OnParseError != nil {
			s.cfg.OnParseError(err)
		}
		return
	}
	evt.Raw = data

	if evt.Type == EventAudioDelta && s.cfg.OnAudio != nil {
		if pcm, err := base64.StdEncoding.DecodeString(evt.Delta); err != nil {
			slog.Warn("undecodable audio delta, skipping", "err", err)
			if s.cfg.OnParseError != nil {
				s.cfg.OnParseError(err)
			}
		} else if len(pcm) > 0 {
			s.cfg.OnAudio(pcm)
		}
	}

	// Every well-formed envelope reaches the application handler, recognised
	// or not.
	if s.cfg.OnMessage != nil {
		s.cfg.OnMessage(evt)
	}
}

// transitionClosed marks the session closed after a transport-level failure
// and notifies the application. The websocket close status, when present,
// distinguishes a remote close from a broken transport.
func (s *Session) transitionClosed(err error) {
	s.mu.Lock()
	alreadyClosed := s.state == StateClosed
	s.state = StateClosed
	s.mu.Unlock()
	if alreadyClosed {
		return
	}

	s.cancel()
	if status := websocket.CloseStatus(err); status != -1 {
		slog.Info("realtime session closed by remote", "status", status)
	} else {
		slog.Warn("realtime transport error", "err", err)
	}
	if s.cfg.OnClose != nil {
		s.cfg.OnClose(err)
	}
}

// Close terminates the session and releases the connection. Idempotent; a
// locally closed session does not fire OnClose.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()

		s.cancel()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}
