package testutil

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	got := Normalize("pushd /tmp/x123/out\r\nls /tmp/x123\r\n", "/tmp/x123", "$DIR")
	want := "pushd $DIR/out\nls $DIR\n"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestUnifiedDiff(t *testing.T) {
	diff := unifiedDiff("a\nb\nc\n", "a\nB\nc\n", "x.golden")

	for _, want := range []string{"--- x.golden (expected)", "+++ x.golden (got)", "-b", "+B", " a"} {
		if !strings.Contains(diff, want) {
			t.Errorf("diff missing %q:\n%s", want, diff)
		}
	}
}
