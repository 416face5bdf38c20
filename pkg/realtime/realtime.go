// Package realtime implements the duplex channel to the conversational
// realtime endpoint.
//
// It establishes a bidirectional WebSocket connection and exchanges JSON
// event envelopes: audio is transmitted as base64-encoded PCM16 chunks in
// input_audio_buffer.append events, and synthesised audio arrives as
// response.audio.delta events. The envelope type set is open-ended — events
// the client does not recognise are forwarded to the message handler
// unmodified, never dropped. Malformed envelopes are logged and skipped
// without tearing down the connection.
package realtime

import "errors"

// ErrNotConnected is returned by outbound operations attempted while the
// session is not open. Wrapped errors can be tested with [errors.Is].
var ErrNotConnected = errors.New("realtime: not connected")

// State is the lifecycle state of a duplex session.
type State int

const (
	// StateIdle means no connection attempt has been made.
	StateIdle State = iota

	// StateConnecting means the WebSocket dial is in flight.
	StateConnecting

	// StateOpen means the session is established and accepting sends.
	StateOpen

	// StateClosed means the session ended — locally via Close, or remotely
	// via a transport error or server-initiated close.
	StateClosed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
