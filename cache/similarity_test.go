package cache

import (
	"testing"

	"pgregory.net/rapid"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
		{"日本語", "日本", 1},
	}

	for _, tt := range tests {
		if got := EditDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("Similarity of two empty strings = %v, want 1.0", got)
	}
	if got := Similarity("abc", ""); got != 0.0 {
		t.Errorf("Similarity(abc, \"\") = %v, want 0", got)
	}
	if got := Similarity("https://a.com/page/1", "https://a.com/page/2"); got != 0.95 {
		t.Errorf("Similarity of one-char difference over 20 = %v, want 0.95", got)
	}
}

func TestSimilarity_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.String().Draw(t, "a")
		b := rapid.String().Draw(t, "b")

		ab := Similarity(a, b)
		if ab != Similarity(b, a) {
			t.Fatalf("not symmetric for %q, %q", a, b)
		}
		if ab < 0 || ab > 1 {
			t.Fatalf("score %v out of range", ab)
		}
		if Similarity(a, a) != 1.0 {
			t.Fatalf("self similarity of %q is not 1", a)
		}
		if ab == 1.0 && a != b {
			t.Fatalf("distinct %q and %q scored 1", a, b)
		}
	})
}

func TestEditDistance_TriangleInequality(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gen := rapid.StringMatching(`[a-c/]{0,12}`)
		a := gen.Draw(t, "a")
		b := gen.Draw(t, "b")
		c := gen.Draw(t, "c")

		if EditDistance(a, c) > EditDistance(a, b)+EditDistance(b, c) {
			t.Fatalf("triangle inequality violated for %q %q %q", a, b, c)
		}
	})
}
