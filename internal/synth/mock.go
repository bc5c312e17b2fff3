package synth

import (
	"context"
	"unicode/utf8"
)

type mockSynth struct {
	sampleRate    int
	channels      int
	bitsPerSample int
}

// NewMockSynth produces silence sized to the text: one tenth of a second per
// ten characters. Useful for exercising the full pipeline without a service.
func NewMockSynth(sampleRate, channels, bitsPerSample int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels, bitsPerSample: bitsPerSample}
}

func (m *mockSynth) Synthesize(ctx context.Context, req Request) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return Payload{}, err
	}
	bytesPerSecond := m.sampleRate * m.channels * m.bitsPerSample / 8
	tenths := utf8.RuneCountInString(req.Text)/10 + 1
	pcm := make([]byte, bytesPerSecond*tenths/10)
	return Payload{
		Audio:      pcm,
		Encoded:    false,
		MimeType:   "audio/pcm",
		SampleRate: m.sampleRate,
	}, nil
}
