package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

type execSynth struct {
	cmd        []string
	sampleRate int
	channels   int
	mu         sync.Mutex
}

type execRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type execResponse struct {
	PCMBase64 string `json:"pcm_base64"`
	Error     string `json:"error,omitempty"`
}

// NewExecSynth runs a local synthesis command per chunk: the request goes to
// stdin as JSON, the response comes back on stdout as one JSON object with
// base64-encoded PCM. Invocations are serialized; local engines rarely
// tolerate concurrent model access.
func NewExecSynth(command string, sampleRate, channels int) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse synthesis command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("synthesis command empty")
	}
	return &execSynth{cmd: args, sampleRate: sampleRate, channels: channels}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req Request) (Payload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := json.Marshal(execRequest{
		Text:       req.Text,
		Voice:      req.Voice,
		SampleRate: e.sampleRate,
		Channels:   e.channels,
	})
	if err != nil {
		return Payload{}, err
	}

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Payload{}, fmt.Errorf("synthesis command: %w: %s", err, msg)
		}
		return Payload{}, fmt.Errorf("synthesis command: %w", err)
	}

	var resp execResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return Payload{}, fmt.Errorf("decode synthesis command output: %w", err)
	}
	if resp.Error != "" {
		if strings.Contains(strings.ToLower(resp.Error), "quota") {
			return Payload{}, &QuotaError{Err: fmt.Errorf("%s", resp.Error)}
		}
		return Payload{}, fmt.Errorf("synthesis command reported: %s", resp.Error)
	}

	return Payload{
		Audio:      []byte(resp.PCMBase64),
		Encoded:    true,
		SampleRate: e.sampleRate,
	}, nil
}
