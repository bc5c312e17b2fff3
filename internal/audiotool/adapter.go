package audiotool

import (
	"context"
	"errors"
)

// ErrToolMissing reports that the external audio tool binary could not be
// found. Callers treat it like any other tool failure: abort the step, keep
// intermediate files.
var ErrToolMissing = errors.New("audio tool not found")

// Adapter abstracts the external audio tool. The production implementation
// shells out to ffmpeg; tests use the deterministic fake.
type Adapter interface {
	// Concat merges the files listed in the concat manifest, in manifest
	// order, into one compressed output file.
	Concat(ctx context.Context, manifestPath, outputPath string) error

	// PitchShift rewrites inputPath to outputPath with its sample rate
	// re-tagged to sampleRate*factor and then resampled back to sampleRate,
	// raising perceived pitch while keeping the container rate standard.
	PitchShift(ctx context.Context, inputPath, outputPath string, factor float64, sampleRate int) error
}
