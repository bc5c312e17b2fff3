package audiotool

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Fake is a deterministic in-process Adapter for tests. Concat writes the
// byte-concatenation of the manifest's files; PitchShift copies the input
// unchanged. Either operation can be forced to fail.
type Fake struct {
	FailConcat error
	FailPitch  error

	ConcatCalls []string
	PitchCalls  []string
}

func (f *Fake) Concat(ctx context.Context, manifestPath, outputPath string) error {
	f.ConcatCalls = append(f.ConcatCalls, manifestPath)
	if f.FailConcat != nil {
		return f.FailConcat
	}

	manifest, err := os.Open(manifestPath)
	if err != nil {
		return err
	}
	defer manifest.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	scanner := bufio.NewScanner(manifest)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		path, ok := parseManifestLine(line)
		if !ok {
			return fmt.Errorf("malformed manifest line: %q", line)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (f *Fake) PitchShift(ctx context.Context, inputPath, outputPath string, factor float64, sampleRate int) error {
	f.PitchCalls = append(f.PitchCalls, inputPath)
	if f.FailPitch != nil {
		return f.FailPitch
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func parseManifestLine(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "file '")
	if !ok {
		return "", false
	}
	path, ok := strings.CutSuffix(rest, "'")
	if !ok {
		return "", false
	}
	return path, true
}
