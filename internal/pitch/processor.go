package pitch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/podforge/podforge-core/internal/audiotool"
)

// Processor alters a stored clip's perceived pitch in place. The sample-rate
// retag trick also speeds playback up by the same factor, so the clip's
// recorded duration must shrink by factor too; Apply returns the corrected
// value.
type Processor struct {
	tool       audiotool.Adapter
	sampleRate int
	log        *slog.Logger
}

func NewProcessor(tool audiotool.Adapter, sampleRate int, log *slog.Logger) *Processor {
	return &Processor{
		tool:       tool,
		sampleRate: sampleRate,
		log:        log.With(slog.String("component", "pitch")),
	}
}

// Apply rewrites wavPath with pitch shifted by factor and returns the
// corrected duration. A factor of 1.0 is a no-op. Pitch alteration is
// best-effort: if the tool fails, the original file and duration are kept and
// no error is returned.
func (p *Processor) Apply(ctx context.Context, wavPath string, duration, factor float64) (float64, error) {
	if factor == 0 || factor == 1.0 {
		return duration, nil
	}

	origPath := strings.TrimSuffix(wavPath, ".wav") + "_orig.wav"
	if err := os.Rename(wavPath, origPath); err != nil {
		return duration, fmt.Errorf("stash original clip: %w", err)
	}

	if err := p.tool.PitchShift(ctx, origPath, wavPath, factor, p.sampleRate); err != nil {
		p.log.Warn("pitch shift failed, keeping original clip",
			slog.String("file", wavPath),
			slog.String("error", err.Error()))
		if rerr := os.Rename(origPath, wavPath); rerr != nil {
			return duration, fmt.Errorf("restore original clip: %w", rerr)
		}
		return duration, nil
	}

	if err := os.Remove(origPath); err != nil {
		p.log.Warn("failed to remove pre-pitch clip", slog.String("file", origPath))
	}
	return duration / factor, nil
}
