package analyzer

import (
	"testing"
)

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("What color is the sky?")
	if len(tokens) != 2 || tokens[0] != "color" || tokens[1] != "sky" {
		t.Errorf("expected [color sky], got %v", tokens)
	}
}

func TestTokenizer_FoldPlurals(t *testing.T) {
	tok := NewTokenizer(true)

	tests := map[string]string{
		"colors":    "color",
		"companies": "company",
		"glass":     "glass",
		"status":    "status",
		"analysis":  "analysis",
		"gas":       "gas",
	}
	for in, want := range tests {
		got := tok.Tokenize(in)
		if len(got) != 1 || got[0] != want {
			t.Errorf("Tokenize(%q) = %v, want [%s]", in, got, want)
		}
	}
}

func TestTokenizer_WithoutFolding(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("quarterly sales numbers")
	if len(tokens) != 3 || tokens[2] != "numbers" {
		t.Errorf("expected plurals to remain, got %v", tokens)
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("a I go x")
	for _, token := range tokens {
		if len(token) < 2 {
			t.Errorf("short word should be removed: %s", token)
		}
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer(true)

	if tokens := tok.Tokenize(""); len(tokens) != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", len(tokens))
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello-world", 2},
		{"Q3 revenue: $4.2M", 4},
		{"naïve café", 2},
		{"123numbers456", 1},
		{"...", 0},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if len(words) != tt.expected {
			t.Errorf("splitWords(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}
