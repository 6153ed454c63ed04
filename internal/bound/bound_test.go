package bound

import (
	"strings"
	"testing"
)

func TestTruncateShortTextUnchanged(t *testing.T) {
	text := "short output"
	if got := Truncate(text, "scan"); got != text {
		t.Errorf("expected unchanged text, got %q", got)
	}
}

func TestTruncateCapsTotalLength(t *testing.T) {
	text := strings.Repeat("x", 100_000)
	got := Truncate(text, "recall")

	if len(got) > MaxOutput {
		t.Errorf("output %d bytes exceeds cap %d", len(got), MaxOutput)
	}
	if !strings.Contains(got, "recall output truncated at 4000 bytes") {
		t.Errorf("missing truncation notice: %q", got[len(got)-120:])
	}
	if !strings.Contains(got, "narrow with extract") {
		t.Error("notice should point at narrowing options")
	}
}

func TestTruncateToCustomCap(t *testing.T) {
	text := strings.Repeat("y", 500)
	got := TruncateTo(text, "status", 200)
	if len(got) > 200 {
		t.Errorf("output %d bytes exceeds cap 200", len(got))
	}
}

func TestTruncateExactBoundary(t *testing.T) {
	text := strings.Repeat("z", MaxOutput)
	if got := Truncate(text, "scan"); got != text {
		t.Error("text exactly at cap should pass through")
	}
}
