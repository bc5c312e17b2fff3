package wav

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// HeaderSize is the length of the canonical RIFF/WAVE/fmt/data header.
const HeaderSize = 44

// DecodePayload turns a synthesis response payload into raw PCM bytes. The
// service may return PCM either raw or base64-encoded; encoded payloads are
// re-padded when the transport stripped trailing '=' characters. An empty
// result with a non-nil error means the payload was unusable; callers treat
// that as a dropped chunk, not a run failure.
func DecodePayload(payload []byte, encoded bool) ([]byte, error) {
	if !encoded {
		return payload, nil
	}
	s := string(payload)
	if missing := len(s) % 4; missing != 0 {
		s += strings.Repeat("=", 4-missing)
	}
	pcm, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return pcm, nil
}

// Encode wraps raw little-endian PCM in a canonical 44-byte WAV container.
// Header-declared sizes are computed from the inputs; the PCM bytes are
// appended unchanged.
func Encode(pcm []byte, sampleRate, channels, bitsPerSample int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if channels <= 0 {
		return nil, errors.New("channel count must be positive")
	}
	if bitsPerSample != 8 && bitsPerSample != 16 && bitsPerSample != 32 {
		return nil, errors.New("bits per sample must be 8, 16 or 32")
	}

	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(pcm)
	chunkSize := 36 + dataSize

	out := make([]byte, 0, HeaderSize+dataSize)
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(chunkSize))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16) // PCM fmt sub-chunk size
	out = binary.LittleEndian.AppendUint16(out, 1)  // audio format: PCM
	out = binary.LittleEndian.AppendUint16(out, uint16(channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(byteRate))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, uint16(bitsPerSample))
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(dataSize))
	out = append(out, pcm...)
	return out, nil
}

// Duration reports the playback length in seconds of a PCM byte buffer.
func Duration(pcmLen, sampleRate, channels, bitsPerSample int) float64 {
	if sampleRate <= 0 || channels <= 0 || bitsPerSample <= 0 {
		return 0
	}
	bytesPerSecond := sampleRate * channels * bitsPerSample / 8
	return float64(pcmLen) / float64(bytesPerSecond)
}
