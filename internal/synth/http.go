package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type httpSynth struct {
	endpoint   string
	apiKey     string
	model      string
	sampleRate int
	channels   int
	client     *http.Client
}

type httpRequest struct {
	Model      string `json:"model"`
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type httpResponse struct {
	AudioBase64 string `json:"audio_base64"`
	MimeType    string `json:"mime_type"`
	SampleRate  int    `json:"sample_rate"`
}

// NewHTTPSynth talks to a remote synthesis service over its JSON API. The
// service answers with base64-encoded PCM at a fixed sample rate; a 429
// status is surfaced as a QuotaError so the retry layer can apply the longer
// backoff band.
func NewHTTPSynth(endpoint, apiKey, model string, sampleRate, channels int, timeout time.Duration) Synthesizer {
	return &httpSynth{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		sampleRate: sampleRate,
		channels:   channels,
		client:     &http.Client{Timeout: timeout},
	}
}

func (h *httpSynth) Synthesize(ctx context.Context, req Request) (Payload, error) {
	body, err := json.Marshal(httpRequest{
		Model:      h.model,
		Text:       req.Text,
		Voice:      req.Voice,
		SampleRate: h.sampleRate,
		Channels:   h.channels,
	})
	if err != nil {
		return Payload{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return Payload{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Payload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return Payload{}, &QuotaError{Err: fmt.Errorf("service returned status %s", resp.Status)}
	}
	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return Payload{}, fmt.Errorf("service returned status %s", resp.Status)
	}

	var parsed httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Payload{}, fmt.Errorf("decode synthesis response: %w", err)
	}

	sampleRate := parsed.SampleRate
	if sampleRate == 0 {
		sampleRate = h.sampleRate
	}
	return Payload{
		Audio:      []byte(parsed.AudioBase64),
		Encoded:    true,
		MimeType:   parsed.MimeType,
		SampleRate: sampleRate,
	}, nil
}
