package textutil_test

import (
	"testing"

	"clipturbo/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		" voice: take/2?.mp3 ": "voice- take-2.mp3",
		"":                     "",
		`a<b>"c"|d*e`:          "abcd-e",
	}
	for in, want := range tests {
		if got := textutil.SanitizeFileName(in); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSliceIsRuneAware(t *testing.T) {
	s := "你好世界hello"
	if got := textutil.Slice(s, 0, 2); got != "你好" {
		t.Fatalf("unexpected slice %q", got)
	}
	if got := textutil.Slice(s, 4, 100); got != "hello" {
		t.Fatalf("unexpected clamped slice %q", got)
	}
	if got := textutil.Slice(s, 50, 100); got != "" {
		t.Fatalf("expected empty slice, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := textutil.Truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := textutil.Truncate("abc", 3); got != "abc" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
