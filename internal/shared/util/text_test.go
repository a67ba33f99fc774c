package util

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "shorter than limit", in: "abc", limit: 5, want: "abc"},
		{name: "exact limit", in: "abcde", limit: 5, want: "abcde"},
		{name: "ascii cut", in: "abcdef", limit: 4, want: "abcd"},
		{name: "multibyte cut", in: "héllo wörld", limit: 7, want: "héllo w"},
		{name: "no limit", in: "abc", limit: 0, want: "abc"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.in, tt.limit); got != tt.want {
				t.Fatalf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}

func TestTruncateRunesKeepsValidUTF8(t *testing.T) {
	in := strings.Repeat("日本語", 3000)
	got := TruncateRunes(in, 5000)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid utf-8")
	}
	if n := utf8.RuneCountInString(got); n != 5000 {
		t.Fatalf("expected 5000 runes, got %d", n)
	}
	if !strings.HasPrefix(in, got) {
		t.Fatalf("expected a prefix of the input")
	}
}
