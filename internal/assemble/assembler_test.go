package assemble

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/podforge/podforge-core/internal/audiotool"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeClips(t *testing.T, dir string, contents ...string) []string {
	t.Helper()
	paths := make([]string, len(contents))
	for i, c := range contents {
		paths[i] = filepath.Join(dir, "clip"+string(rune('a'+i))+".wav")
		if err := os.WriteFile(paths[i], []byte(c), 0o644); err != nil {
			t.Fatalf("write clip: %v", err)
		}
	}
	return paths
}

func TestMergeEmptyListRejected(t *testing.T) {
	a := New(&audiotool.Fake{}, false, newLogger())
	err := a.Merge(context.Background(), nil, "out.mp3")
	if !errors.Is(err, ErrNoClips) {
		t.Fatalf("expected ErrNoClips, got %v", err)
	}
}

func TestMergeConcatenatesInOrder(t *testing.T) {
	dir := t.TempDir()
	paths := writeClips(t, dir, "one-", "two-", "three")
	out := filepath.Join(dir, "episode.mp3")

	a := New(&audiotool.Fake{}, false, newLogger())
	if err := a.Merge(context.Background(), paths, out); err != nil {
		t.Fatalf("merge: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(data, []byte("one-two-three")) {
		t.Fatalf("clips merged out of order: %q", data)
	}

	// Manifest and intermediate clips are cleaned up on success.
	if _, err := os.Stat(filepath.Join(dir, "concat_list.txt")); !os.IsNotExist(err) {
		t.Fatal("manifest left behind")
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("intermediate clip left behind: %s", p)
		}
	}
}

func TestMergeKeepWAVsOption(t *testing.T) {
	dir := t.TempDir()
	paths := writeClips(t, dir, "a", "b")
	out := filepath.Join(dir, "episode.mp3")

	a := New(&audiotool.Fake{}, true, newLogger())
	if err := a.Merge(context.Background(), paths, out); err != nil {
		t.Fatalf("merge: %v", err)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("clip removed despite keep option: %s", p)
		}
	}
}

func TestMergeToolFailurePreservesFiles(t *testing.T) {
	dir := t.TempDir()
	paths := writeClips(t, dir, "a", "b")
	out := filepath.Join(dir, "episode.mp3")

	a := New(&audiotool.Fake{FailConcat: errors.New("codec missing")}, false, newLogger())
	err := a.Merge(context.Background(), paths, out)
	if err == nil {
		t.Fatal("expected merge error")
	}

	// Everything stays on disk for manual recovery.
	if _, err := os.Stat(filepath.Join(dir, "concat_list.txt")); err != nil {
		t.Fatalf("manifest removed on failure: %v", err)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("clip removed on failure: %s", p)
		}
	}
}

func TestManifestFormat(t *testing.T) {
	dir := t.TempDir()
	paths := writeClips(t, dir, "x")
	manifest := filepath.Join(dir, "manifest.txt")
	if err := writeManifest(manifest, paths); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	abs, _ := filepath.Abs(paths[0])
	want := "file '" + abs + "'\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}
