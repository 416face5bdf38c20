package playback

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/perimetra/voxwire/pkg/audio"
)

// writeBlockSize is the number of samples written to the output stream per
// blocking write. Small enough to keep Close latency low, large enough to
// avoid underruns on typical devices.
const writeBlockSize = 1024

// fallbackRate is tried when the output device rejects the pipeline rate.
// Decoded chunks are upsampled to the device rate before writing.
const fallbackRate = 48000

// Compile-time assertion that PortAudioPlayer satisfies Player.
var _ Player = (*PortAudioPlayer)(nil)

// PortAudioPlayer renders WAV containers to the default output device. It
// owns one long-lived output stream; chunks are decoded, resampled to the
// device rate if needed, and written synchronously. Play blocks until the
// chunk has been handed to the device in full.
type PortAudioPlayer struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
	rate   int
	closed bool
}

// NewPortAudioPlayer initialises PortAudio and opens the default output
// stream at the pipeline rate, falling back to 48 kHz when the device
// rejects 24 kHz. The caller must Close the player to release the device.
func NewPortAudioPlayer() (*PortAudioPlayer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("playback: initialize: %w", err)
	}

	buf := make([]int16, writeBlockSize)
	rate := audio.SampleRate
	stream, err := portaudio.OpenDefaultStream(0, audio.Channels, float64(rate), len(buf), buf)
	if err != nil {
		rate = fallbackRate
		stream, err = portaudio.OpenDefaultStream(0, audio.Channels, float64(rate), len(buf), buf)
		if err != nil {
			portaudio.Terminate()
			return nil, fmt.Errorf("playback: open output stream: %w", err)
		}
		slog.Warn("output device rejected pipeline rate, playing at fallback rate",
			"pipeline_rate", audio.SampleRate,
			"device_rate", rate,
		)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("playback: start output stream: %w", err)
	}

	return &PortAudioPlayer{stream: stream, buf: buf, rate: rate}, nil
}

// Play decodes container and writes its PCM payload to the output device,
// blocking until the final block has been written.
func (p *PortAudioPlayer) Play(container []byte) error {
	pcm, srcRate, err := audio.DecodeWAV(container)
	if err != nil {
		return fmt.Errorf("playback: decode: %w", err)
	}
	if srcRate != p.rate {
		pcm = audio.ResampleMono16(pcm, srcRate, p.rate)
	}
	samples := audio.DecodePCM16(pcm)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("playback: player closed")
	}

	for off := 0; off < len(samples); off += len(p.buf) {
		end := off + len(p.buf)
		if end > len(samples) {
			end = len(samples)
		}
		n := copy(p.buf, samples[off:end])
		// Zero-pad the final partial block so stale samples are not replayed.
		for i := n; i < len(p.buf); i++ {
			p.buf[i] = 0
		}
		if err := p.stream.Write(); err != nil {
			return fmt.Errorf("playback: write: %w", err)
		}
	}
	return nil
}

// Close stops the output stream and releases the PortAudio runtime.
// Idempotent.
func (p *PortAudioPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.stream.Stop(); err != nil {
		slog.Debug("playback stream stop", "err", err)
	}
	if err := p.stream.Close(); err != nil {
		slog.Warn("playback stream close", "err", err)
	}
	if err := portaudio.Terminate(); err != nil {
		slog.Warn("portaudio terminate", "err", err)
	}
	return nil
}
