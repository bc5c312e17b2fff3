package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/podforge/podforge-core/internal/audiotool"
)

// ErrNoClips reports that the assembler was handed an empty clip list. That
// is a precondition failure: nothing was synthesized, so there is no episode
// to produce.
var ErrNoClips = errors.New("no audio clips to assemble")

// Assembler concatenates ordered per-chunk WAV files into one compressed
// episode file via the audio tool's concat mode.
type Assembler struct {
	tool     audiotool.Adapter
	keepWAVs bool
	log      *slog.Logger
}

func New(tool audiotool.Adapter, keepWAVs bool, log *slog.Logger) *Assembler {
	return &Assembler{
		tool:     tool,
		keepWAVs: keepWAVs,
		log:      log.With(slog.String("component", "assemble")),
	}
}

// Merge writes a concat manifest for wavPaths in order, invokes the tool, and
// on success deletes the manifest and the per-clip WAV files. On failure the
// intermediate files are deliberately left in place for manual recovery.
func (a *Assembler) Merge(ctx context.Context, wavPaths []string, outputPath string) error {
	if len(wavPaths) == 0 {
		return ErrNoClips
	}

	manifestPath := filepath.Join(filepath.Dir(wavPaths[0]), "concat_list.txt")
	if err := writeManifest(manifestPath, wavPaths); err != nil {
		return err
	}

	if err := a.tool.Concat(ctx, manifestPath, outputPath); err != nil {
		a.log.Error("concat failed, keeping intermediate files",
			slog.String("manifest", manifestPath),
			slog.String("error", err.Error()))
		return fmt.Errorf("concatenate clips: %w", err)
	}

	if err := os.Remove(manifestPath); err != nil {
		a.log.Warn("failed to remove concat manifest", slog.String("file", manifestPath))
	}
	if !a.keepWAVs {
		for _, p := range wavPaths {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				a.log.Warn("failed to remove intermediate clip", slog.String("file", p))
			}
		}
	}

	a.log.Info("episode assembled",
		slog.Int("clips", len(wavPaths)),
		slog.String("output", outputPath))
	return nil
}

func writeManifest(path string, wavPaths []string) error {
	var b strings.Builder
	for _, p := range wavPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve clip path: %w", err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}
