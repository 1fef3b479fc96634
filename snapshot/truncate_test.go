package snapshot

import "testing"

func TestHeadTailTruncate(t *testing.T) {
	cases := []struct {
		name  string
		value string
		limit int
	}{
		{"empty limit", "hello", 0},
		{"under limit", "hello", 10},
		{"exact limit", "hello", 5},
		{"tiny limit", "abcdefghij", 8},
		{"typical", "the quick brown fox jumps over the lazy dog", 20},
		{"unicode", "日本語のテキストはとても長い文字列になることがあります", 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := headTailTruncate(c.value, c.limit)
			r := []rune(c.value)
			if c.limit <= 0 {
				if got != "" {
					t.Fatalf("expected empty, got %q", got)
				}
				return
			}
			if len(r) <= c.limit {
				if got != c.value {
					t.Fatalf("expected unchanged value, got %q", got)
				}
				return
			}
			if len([]rune(got)) > len(r) {
				t.Fatalf("truncated value longer than input: %q", got)
			}
		})
	}
}

func TestHeadTailTruncateDeterministic(t *testing.T) {
	in := "0123456789abcdefghijklmnopqrstuvwxyz"
	a := headTailTruncate(in, 15)
	b := headTailTruncate(in, 15)
	if a != b {
		t.Fatalf("truncation is not deterministic: %q vs %q", a, b)
	}
}
