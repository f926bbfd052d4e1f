package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKShingles(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		k        int
		expected []string
	}{
		{"bigrams", "abcd", 2, []string{"ab", "bc", "cd"}},
		{"exact length", "abc", 3, []string{"abc"}},
		{"shorter than k", "a", 2, []string{}},
		{"empty text", "", 2, []string{}},
		{"zero k", "abc", 0, []string{}},
		{"multibyte runes", "héllo", 2, []string{"hé", "él", "ll", "lo"}},
		{"repeated shingles kept", "aaa", 2, []string{"aa", "aa"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KShingles(tt.text, tt.k))
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Hello   WORLD ", "hello world"},
		{"Café au lait", "cafe au lait"},
		{"ﬁne\tline\nbreak", "fine line break"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.input))
		})
	}
}

func TestKShingler_Extract(t *testing.T) {
	raw := KShingler{K: 2}
	normalized := KShingler{K: 2, Normalize: true}

	assert.NotEqual(t, raw.Extract("The Cat"), raw.Extract("the  cat"))
	assert.Equal(t, normalized.Extract("The Cat"), normalized.Extract("the  cat"))
	assert.Equal(t, []string{"ab"}, normalized.Extract("AB"))
}
