package audio_test

import (
	"encoding/base64"
	"math"
	"testing"

	"github.com/perimetra/voxwire/pkg/audio"
)

func TestEncodePCM16_ScaleFactors(t *testing.T) {
	// Negative samples scale by 32768, non-negative by 32767.
	pcm := audio.EncodePCM16(audio.Frame{0.5, -1.0, 0.0, 1.0, -0.5})
	got := audio.DecodePCM16(pcm)
	want := []int16{16383, -32768, 0, 32767, -16384}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEncodePCM16_Clamping(t *testing.T) {
	pcm := audio.EncodePCM16(audio.Frame{2.0, -3.5})
	got := audio.DecodePCM16(pcm)
	if got[0] != 32767 {
		t.Errorf("over-range sample: got %d, want 32767", got[0])
	}
	if got[1] != -32768 {
		t.Errorf("under-range sample: got %d, want -32768", got[1])
	}
}

func TestEncodePCM16_RoundTripWithinOneLSB(t *testing.T) {
	frame := make(audio.Frame, 4096)
	for i := range frame {
		frame[i] = float32(math.Sin(2 * math.Pi * float64(i) / 96))
	}

	got := audio.DecodePCM16(audio.EncodePCM16(frame))
	for i, s := range frame {
		// Reference value using the same clamp-and-scale rule.
		var want int16
		if s < 0 {
			want = int16(s * 32768)
		} else {
			want = int16(s * 32767)
		}
		diff := int(got[i]) - int(want)
		if diff < -1 || diff > 1 {
			t.Fatalf("sample %d: got %d, want %d ±1", i, got[i], want)
		}
	}
}

func TestEncodeBase64PCM16_MatchesDirectEncoding(t *testing.T) {
	// A frame larger than the internal chunk size must still produce a single
	// valid base64 string with no mid-stream padding.
	frame := make(audio.Frame, 20000)
	for i := range frame {
		frame[i] = float32(i%200-100) / 100
	}

	got := audio.EncodeBase64PCM16(frame)
	want := base64.StdEncoding.EncodeToString(audio.EncodePCM16(frame))
	if got != want {
		t.Fatal("chunked base64 encoding differs from direct encoding")
	}
}

func TestDecodeBase64PCM16_RoundTrip(t *testing.T) {
	frame := audio.Frame{0.25, -0.25, 0.0}
	encoded := audio.EncodeBase64PCM16(frame)

	pcm, err := audio.DecodeBase64PCM16(encoded)
	if err != nil {
		t.Fatalf("DecodeBase64PCM16: %v", err)
	}
	want := audio.EncodePCM16(frame)
	if len(pcm) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(pcm), len(want))
	}
	for i := range want {
		if pcm[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, pcm[i], want[i])
		}
	}
}

func TestDecodePCM16_IgnoresTrailingOddByte(t *testing.T) {
	got := audio.DecodePCM16([]byte{0x01, 0x00, 0xff})
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want [1]", got)
	}
}
