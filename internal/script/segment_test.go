package script

import "testing"

func TestSplitSegmentsTwoSpeakers(t *testing.T) {
	segments := SplitSegments("[Host] Hello. [Guest] Hi there.", "Host")
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Speaker != "Host" || segments[0].Text != "Hello." {
		t.Fatalf("unexpected first segment: %+v", segments[0])
	}
	if segments[1].Speaker != "Guest" || segments[1].Text != "Hi there." {
		t.Fatalf("unexpected second segment: %+v", segments[1])
	}
}

func TestSplitSegmentsNoTags(t *testing.T) {
	segments := SplitSegments("Just one voice talking.", "Narrator")
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Speaker != "Narrator" {
		t.Fatalf("expected fallback speaker, got %q", segments[0].Speaker)
	}
	if segments[0].Text != "Just one voice talking." {
		t.Fatalf("unexpected text: %q", segments[0].Text)
	}
}

func TestSplitSegmentsDropsEmpty(t *testing.T) {
	segments := SplitSegments("[Host] [Guest] Actual content.", "Host")
	if len(segments) != 1 {
		t.Fatalf("expected empty segment dropped, got %d segments", len(segments))
	}
	if segments[0].Speaker != "Guest" {
		t.Fatalf("expected Guest, got %q", segments[0].Speaker)
	}
}

func TestSplitSegmentsOrderPreserved(t *testing.T) {
	segments := SplitSegments("[A] one [B] two [A] three", "X")
	want := []struct{ speaker, text string }{
		{"A", "one"}, {"B", "two"}, {"A", "three"},
	}
	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(segments))
	}
	for i, w := range want {
		if segments[i].Speaker != w.speaker || segments[i].Text != w.text {
			t.Fatalf("segment %d: got %+v, want %+v", i, segments[i], w)
		}
	}
}

func TestSplitSegmentsEmptyScript(t *testing.T) {
	if segments := SplitSegments("   ", "Host"); segments != nil {
		t.Fatalf("expected nil for blank script, got %+v", segments)
	}
}
