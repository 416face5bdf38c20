// Package playback buffers inbound PCM chunks and plays them back strictly
// in arrival order, one chunk at a time.
//
// The [Queue] is an explicit state machine over {idle, playing}. Enqueueing
// while idle starts a drain goroutine that owns all player calls; each drain
// step pops the head chunk, wraps it in a WAV container, and plays it to
// completion. Completion — success or failure — is the sole trigger for the
// next step, so a corrupt chunk is skipped and can never stall the stream.
package playback

import (
	"log/slog"
	"sync"

	"github.com/perimetra/voxwire/pkg/audio"
)

// Player is the generic audio decode-and-playback facility. Play accepts a
// self-describing audio container (not bare PCM), decodes it, and blocks
// until the audio has finished playing. Implementations signal undecodable
// or unplayable input by returning an error.
type Player interface {
	Play(container []byte) error
	Close() error
}

// Option configures a [Queue].
type Option func(*Queue)

// WithFailureHandler registers a callback invoked once per chunk that fails
// to decode or play. The queue advances regardless; the handler exists for
// metrics and logging only. May be nil.
func WithFailureHandler(fn func(error)) Option {
	return func(q *Queue) { q.onFailure = fn }
}

// WithCompletionHandler registers a callback invoked once per chunk after its
// playback attempt finishes, whether it succeeded or was skipped. Used to
// track queue depth.
func WithCompletionHandler(fn func()) Option {
	return func(q *Queue) { q.onDone = fn }
}

// Queue plays PCM chunks in strict FIFO arrival order. Safe for concurrent
// use. The queue is unbounded: it applies no backpressure to the sender.
type Queue struct {
	player    Player
	onFailure func(error)
	onDone    func()

	mu      sync.Mutex
	pending [][]byte
	playing bool
}

// New creates an idle queue that plays through player.
func New(player Player, opts ...Option) *Queue {
	q := &Queue{player: player}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a raw PCM16 chunk to the tail. If the queue is idle it
// transitions to playing and begins draining immediately.
func (q *Queue) Enqueue(pcm []byte) {
	q.mu.Lock()
	q.pending = append(q.pending, pcm)
	start := !q.playing
	if start {
		q.playing = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

// drain pops and plays chunks until the queue is empty, then transitions
// back to idle. Only one drain goroutine exists at a time, which is what
// guarantees one-chunk-at-a-time playback.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.playing = false
			q.mu.Unlock()
			return
		}
		pcm := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if err := q.player.Play(audio.BuildWAV(pcm)); err != nil {
			slog.Warn("playback chunk failed, skipping", "bytes", len(pcm), "err", err)
			if q.onFailure != nil {
				q.onFailure(err)
			}
		}
		if q.onDone != nil {
			q.onDone()
		}
	}
}

// Clear empties the pending chunks so no further playback starts. It does
// not interrupt a chunk the player is already rendering; there is no
// guaranteed interrupt primitive, so that chunk finishes on its own.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()
}

// Len returns the number of chunks waiting to be played. The chunk currently
// inside the player, if any, is not counted.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Playing reports whether a drain goroutine is active.
func (q *Queue) Playing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}
