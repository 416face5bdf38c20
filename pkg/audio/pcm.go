package audio

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
)

// base64ChunkSize is the number of PCM bytes fed to the base64 encoder per
// write. Bounds intermediate buffer growth when encoding large frames.
const base64ChunkSize = 32768

// EncodePCM16 converts float32 samples to little-endian 16-bit PCM.
//
// Each sample is clamped to [-1, 1] and scaled with separate factors for the
// two halves of the int16 range: negative samples by 32768, non-negative by
// 32767. The asymmetry matches the signed 16-bit value range [-32768, 32767]
// and must not be collapsed into a single factor.
func EncodePCM16(frame Frame) []byte {
	out := make([]byte, len(frame)*2)
	for i, s := range frame {
		if s < -1 {
			s = -1
		} else if s > 1 {
			s = 1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// DecodePCM16 converts little-endian 16-bit PCM bytes to int16 samples.
// A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

// EncodeBase64PCM16 encodes a frame as PCM16 and wraps it in standard base64
// for transport over the JSON event channel. The PCM bytes are streamed
// through the encoder in [base64ChunkSize] chunks.
func EncodeBase64PCM16(frame Frame) string {
	pcm := EncodePCM16(frame)

	var b strings.Builder
	b.Grow(base64.StdEncoding.EncodedLen(len(pcm)))
	enc := base64.NewEncoder(base64.StdEncoding, &b)
	for off := 0; off < len(pcm); off += base64ChunkSize {
		end := off + base64ChunkSize
		if end > len(pcm) {
			end = len(pcm)
		}
		enc.Write(pcm[off:end])
	}
	enc.Close()
	return b.String()
}

// DecodeBase64PCM16 decodes a transport string back into raw PCM16 bytes.
func DecodeBase64PCM16(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
