package realtime

import "encoding/json"

// Recognised inbound event types. The set is intentionally non-exhaustive:
// anything else is forwarded to the message handler as-is.
const (
	// EventAudioDelta carries a base64 PCM16 chunk of synthesised audio.
	EventAudioDelta = "response.audio.delta"

	// EventTranscriptDelta carries an incremental transcript of the
	// synthesised audio.
	EventTranscriptDelta = "response.audio_transcript.delta"
)

// ServerEvent is one inbound envelope. Type is the discriminator; Delta is
// populated for audio and transcript deltas; Raw holds the complete envelope
// so unrecognised fields survive the trip to the application handler.
type ServerEvent struct {
	Type  string          `json:"type"`
	Delta string          `json:"delta,omitempty"`
	Raw   json.RawMessage `json:"-"`
}

// ── Outbound envelopes ────────────────────────────────────────────────────────

type sessionUpdateEvent struct {
	EventID string        `json:"event_id,omitempty"`
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Voice             string `json:"voice,omitempty"`
	Instructions      string `json:"instructions,omitempty"`
	InputAudioFormat  string `json:"input_audio_format"`
	OutputAudioFormat string `json:"output_audio_format"`
}

type appendAudioEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
	Audio   string `json:"audio"` // base64-encoded PCM16
}

type createItemEvent struct {
	EventID string           `json:"event_id,omitempty"`
	Type    string           `json:"type"`
	Item    conversationItem `json:"item"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type responseCreateEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
}
