package audiotool

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// FFmpeg invokes the ffmpeg binary for concatenation and pitch work. The
// configured path may carry extra arguments ("ffmpeg -hide_banner"); they are
// prepended to every invocation.
type FFmpeg struct {
	cmd     []string
	codec   string
	bitrate string
	log     *slog.Logger
}

func NewFFmpeg(path, codec, bitrate string, log *slog.Logger) (*FFmpeg, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse ffmpeg command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("ffmpeg command empty")
	}
	return &FFmpeg{
		cmd:     args,
		codec:   codec,
		bitrate: bitrate,
		log:     log.With(slog.String("component", "ffmpeg")),
	}, nil
}

func (f *FFmpeg) Concat(ctx context.Context, manifestPath, outputPath string) error {
	args := []string{
		"-f", "concat", "-safe", "0",
		"-i", manifestPath,
		"-c:a", f.codec,
		"-b:a", f.bitrate,
		"-y", outputPath,
	}
	return f.run(ctx, args)
}

func (f *FFmpeg) PitchShift(ctx context.Context, inputPath, outputPath string, factor float64, sampleRate int) error {
	shifted := int(float64(sampleRate) * factor)
	args := []string{
		"-i", inputPath,
		"-af", fmt.Sprintf("asetrate=%d,aresample=%d", shifted, sampleRate),
		"-y", outputPath,
	}
	return f.run(ctx, args)
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	base := f.cmd[0]
	if _, err := exec.LookPath(base); err != nil {
		return fmt.Errorf("%w: %s", ErrToolMissing, base)
	}

	full := append(append([]string{}, f.cmd[1:]...), args...)
	cmd := exec.CommandContext(ctx, base, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.log.Debug("invoking audio tool", slog.String("args", strings.Join(full, " ")))
	if err := cmd.Run(); err != nil {
		if msg := tail(stderr.String(), 400); msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
