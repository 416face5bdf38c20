package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeaderSize is the fixed size of the canonical PCM WAV header.
const wavHeaderSize = 44

// wavHeader is the canonical 44-byte RIFF/WAVE header for uncompressed PCM.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data size
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// BuildWAV wraps raw little-endian PCM16 bytes in a self-describing WAV
// container at the pipeline format (24 kHz, mono, 16-bit). The playback
// decoder accepts containers only, not bare PCM, so every inbound chunk is
// wrapped before it is handed to the player.
func BuildWAV(pcm []byte) []byte {
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(wavHeaderSize - 8 + len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    SampleRate,
		ByteRate:      SampleRate * Channels * BitsPerSample / 8,
		BlockAlign:    Channels * BitsPerSample / 8,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	binary.Write(buf, binary.LittleEndian, header)
	buf.Write(pcm)
	return buf.Bytes()
}

// DecodeWAV parses a PCM WAV container and returns the raw PCM bytes and the
// declared sample rate. Only uncompressed 16-bit mono audio is accepted;
// anything else is a decode error.
func DecodeWAV(data []byte) (pcm []byte, sampleRate int, err error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav: container too short: %d bytes", len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("wav: read header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("wav: not a RIFF/WAVE container")
	}
	if string(header.Subchunk1ID[:]) != "fmt " || string(header.Subchunk2ID[:]) != "data" {
		return nil, 0, fmt.Errorf("wav: missing fmt or data chunk")
	}
	if header.AudioFormat != 1 {
		return nil, 0, fmt.Errorf("wav: unsupported audio format %d (PCM only)", header.AudioFormat)
	}
	if header.BitsPerSample != BitsPerSample {
		return nil, 0, fmt.Errorf("wav: unsupported bit depth %d", header.BitsPerSample)
	}
	if header.NumChannels != Channels {
		return nil, 0, fmt.Errorf("wav: unsupported channel count %d", header.NumChannels)
	}

	size := int(header.Subchunk2Size)
	if size > len(data)-wavHeaderSize {
		size = len(data) - wavHeaderSize
	}
	return data[wavHeaderSize : wavHeaderSize+size], int(header.SampleRate), nil
}
