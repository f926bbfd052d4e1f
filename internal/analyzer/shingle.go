package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ShingleExtractor turns a text into the token set a signature is built from
type ShingleExtractor interface {
	Extract(text string) []string
}

// KShingles returns the contiguous substrings of k runes of text, in order.
// Text shorter than k yields no shingles.
func KShingles(text string, k int) []string {
	if k <= 0 {
		return []string{}
	}
	rs := []rune(text)
	if len(rs) < k {
		return []string{}
	}
	shingles := make([]string, 0, len(rs)-k+1)
	for i := 0; i+k <= len(rs); i++ {
		shingles = append(shingles, string(rs[i:i+k]))
	}
	return shingles
}

// KShingler is the default ShingleExtractor: k-rune character shingles,
// optionally over normalised text.
type KShingler struct {
	K         int
	Normalize bool
}

// Extract implements ShingleExtractor
func (s KShingler) Extract(text string) []string {
	if s.Normalize {
		text = NormalizeText(text)
	}
	return KShingles(text, s.K)
}

// NormalizeText folds compatibility forms, strips combining marks,
// lower-cases and collapses whitespace runs to a single space.
func NormalizeText(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
