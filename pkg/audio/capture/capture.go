// Package capture acquires microphone audio through PortAudio and emits
// fixed-size float32 frames at the pipeline format (24 kHz mono, 4096-sample
// blocks).
//
// A [Source] owns the PortAudio runtime for its lifetime: Start initialises
// the library and opens the default input stream, Stop releases the stream
// and terminates the runtime on every exit path. Frames are produced by a
// single reader goroutine, so the frame handler is never invoked reentrantly
// and frames arrive in block order.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/perimetra/voxwire/pkg/audio"
)

// ErrCapture is the error kind for microphone acquisition failures: no input
// device, permission denied by the OS, or an unusable stream configuration.
// Returned errors wrap ErrCapture so callers can test with [errors.Is].
var ErrCapture = errors.New("capture: device acquisition failed")

// fallbackRate is tried when the input device rejects the pipeline rate.
// Blocks captured at the fallback rate are resampled down to 24 kHz before
// the handler sees them, so consumers always observe 4096-sample frames.
const fallbackRate = 48000

// FrameHandler receives one frame per capture block. The handler is invoked
// from the source's reader goroutine; it must not block for longer than one
// block duration (~170 ms) or capture will fall behind.
type FrameHandler func(frame audio.Frame)

// Source captures microphone audio and delivers it as [audio.Frame] values.
// The zero value is ready to use. Not safe for concurrent Start calls; Stop
// may be called from any goroutine at any time.
type Source struct {
	mu         sync.Mutex
	stream     *portaudio.Stream
	started    bool
	deviceRate int

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates an idle capture source.
func New() *Source {
	return &Source{}
}

// Start initialises PortAudio, opens the default input device, and begins
// invoking handler with one frame per processing block. It returns an error
// wrapping [ErrCapture] if the device cannot be acquired. Calling Start on a
// source that is already running is an error.
func (s *Source) Start(handler FrameHandler) error {
	if handler == nil {
		return fmt.Errorf("capture: nil frame handler")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("capture: already started")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: initialize: %v", ErrCapture, err)
	}

	stream, rate, buf, err := openInputStream()
	if err != nil {
		portaudio.Terminate()
		return err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: start stream: %v", ErrCapture, err)
	}

	s.stream = stream
	s.deviceRate = rate
	s.started = true
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.readLoop(stream, handler, buf, rate)

	slog.Info("microphone capture started",
		"device_rate", rate,
		"frame_size", audio.FrameSize,
	)
	return nil
}

// openInputStream opens the default mono input stream at the pipeline rate,
// falling back to [fallbackRate] if the device rejects 24 kHz. The returned
// buffer is sized so that one read resamples to exactly one pipeline frame.
func openInputStream() (*portaudio.Stream, int, []float32, error) {
	buf := make([]float32, audio.FrameSize)
	stream, err := portaudio.OpenDefaultStream(audio.Channels, 0, float64(audio.SampleRate), len(buf), buf)
	if err == nil {
		return stream, audio.SampleRate, buf, nil
	}

	// Some capture stacks only expose the hardware rate. Retry at 48 kHz with
	// a proportionally larger block so the resampled frame stays 4096 samples.
	blockSize := audio.FrameSize * fallbackRate / audio.SampleRate
	buf = make([]float32, blockSize)
	stream, fallbackErr := portaudio.OpenDefaultStream(audio.Channels, 0, float64(fallbackRate), len(buf), buf)
	if fallbackErr != nil {
		return nil, 0, nil, fmt.Errorf("%w: open stream: %v (fallback %dHz: %v)",
			ErrCapture, err, fallbackRate, fallbackErr)
	}

	slog.Warn("input device rejected pipeline rate, capturing at fallback rate",
		"pipeline_rate", audio.SampleRate,
		"device_rate", fallbackRate,
	)
	return stream, fallbackRate, buf, nil
}

// readLoop blocks on the stream and hands one frame per block to handler.
// It exits when Stop aborts the stream or the device reports a read error.
func (s *Source) readLoop(stream *portaudio.Stream, handler FrameHandler, buf []float32, rate int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			select {
			case <-s.done:
				// Stop aborted the stream; not a device failure.
			default:
				slog.Error("microphone read failed, stopping capture", "err", err)
			}
			return
		}

		// Hand the handler its own copy: the stream reuses buf on the next read.
		frame := make(audio.Frame, len(buf))
		copy(frame, buf)
		if rate != audio.SampleRate {
			frame = audio.ResampleMonoF32(frame, rate, audio.SampleRate)
		}
		handler(frame)
	}
}

// Stop releases the input stream and the PortAudio runtime. It is idempotent:
// calling Stop on a source that never started, or stopping twice, is a no-op.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.done)
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	// Abort discards queued buffers and unblocks a reader stuck in Read.
	if err := stream.Abort(); err != nil {
		slog.Debug("capture stream abort", "err", err)
	}
	s.wg.Wait()

	if err := stream.Close(); err != nil {
		slog.Warn("capture stream close", "err", err)
	}
	if err := portaudio.Terminate(); err != nil {
		slog.Warn("portaudio terminate", "err", err)
	}
	slog.Info("microphone capture stopped")
}
