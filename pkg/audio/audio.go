// Package audio provides the PCM encoding, WAV container, and resampling
// primitives shared by the voxwire capture and playback pipelines.
//
// The pipeline-wide audio format is fixed: 24 kHz, mono, 16-bit little-endian
// PCM on the wire, float32 samples in [-1, 1] between capture and encoding.
// Frames are the atomic unit of capture — one [Frame] per processing block.
package audio

// Pipeline-wide audio constants. The remote realtime endpoint negotiates
// pcm16 at 24 kHz mono; capture and playback are locked to the same format.
const (
	// SampleRate is the pipeline sample rate in Hz.
	SampleRate = 24000

	// Channels is the pipeline channel count (mono).
	Channels = 1

	// FrameSize is the number of samples per capture processing block.
	FrameSize = 4096

	// BitsPerSample is the wire sample width.
	BitsPerSample = 16
)

// Frame is one capture block of float32 samples in [-1, 1] at [SampleRate],
// mono. A Frame is immutable once produced: the capture source hands each
// Frame to exactly one consumer and never reuses the backing slice.
type Frame []float32
