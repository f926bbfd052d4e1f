package analyzer

import (
	"github.com/cespare/xxhash/v2"
)

// MinHashSignature holds the signature vector
type MinHashSignature struct {
	signatures []uint64
	numHashes  int
}

// NewMinHashSignature wraps raw signature values. The slice is not copied.
func NewMinHashSignature(values []uint64) *MinHashSignature {
	return &MinHashSignature{signatures: values, numHashes: len(values)}
}

// GetSignatures returns the per-slot minima in hash-function order
func (s *MinHashSignature) GetSignatures() []uint64 { return s.signatures }

// GetNumHashes returns the signature length
func (s *MinHashSignature) GetNumHashes() int { return s.numHashes }

// Equal reports whether two signatures hold the same values.
func (s *MinHashSignature) Equal(other *MinHashSignature) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.signatures) != len(other.signatures) {
		return false
	}
	for i, v := range s.signatures {
		if other.signatures[i] != v {
			return false
		}
	}
	return true
}

// MinHasher computes MinHash signatures for token sets
type MinHasher struct {
	family *HashFamily
}

// NewMinHasher creates a MinHasher over an existing hash family
func NewMinHasher(family *HashFamily) *MinHasher {
	return &MinHasher{family: family}
}

// NewSeededMinHasher builds a hash family and wraps it in a MinHasher.
func NewSeededMinHasher(numHashes int, maxHash uint64, seed *int64) (*MinHasher, error) {
	family, err := NewHashFamily(numHashes, maxHash, seed)
	if err != nil {
		return nil, err
	}
	return NewMinHasher(family), nil
}

// NumHashes returns the signature length produced by this hasher
func (m *MinHasher) NumHashes() int { return m.family.Size() }

// MaxHash returns the sentinel used for slots with no minimum
func (m *MinHasher) MaxHash() uint64 { return m.family.MaxHash() }

// Family returns the underlying hash family
func (m *MinHasher) Family() *HashFamily { return m.family }

// BaseHash is the stable, salt-free 64-bit hash of a token.
func BaseHash(token string) uint64 {
	return xxhash.Sum64String(token)
}

// ComputeSignature computes the MinHash signature for a set of tokens.
// Duplicate tokens and token order do not affect the result.
func (m *MinHasher) ComputeSignature(tokens []string) *MinHashSignature {
	// Base hashes once per distinct token
	seen := make(map[uint64]struct{}, len(tokens))
	base := make([]uint64, 0, len(tokens))
	for _, t := range tokens {
		h := BaseHash(t)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		base = append(base, h)
	}
	return m.computeFromBase(base)
}

func (m *MinHasher) computeFromBase(base []uint64) *MinHashSignature {
	n := m.family.Size()
	sig := make([]uint64, n)
	for i := 0; i < n; i++ {
		minv := m.family.MaxHash()
		for _, x := range base {
			if v := m.family.Apply(i, x); v < minv {
				minv = v
			}
		}
		sig[i] = minv
	}
	return &MinHashSignature{signatures: sig, numHashes: n}
}

// EstimateJaccardSimilarity estimates Jaccard similarity via signature agreement ratio
func (m *MinHasher) EstimateJaccardSimilarity(sig1, sig2 *MinHashSignature) float64 {
	if sig1 == nil || sig2 == nil || len(sig1.signatures) == 0 || len(sig2.signatures) == 0 {
		return 0.0
	}
	if len(sig1.signatures) != len(sig2.signatures) {
		return 0.0
	}
	match := 0
	for i, v := range sig1.signatures {
		if sig2.signatures[i] == v {
			match++
		}
	}
	return float64(match) / float64(len(sig1.signatures))
}

// ComputeJaccardSimilarity computes the exact Jaccard similarity of two token sets.
// Two empty sets are considered identical.
func ComputeJaccardSimilarity(tokens1, tokens2 []string) float64 {
	set1 := make(map[string]struct{}, len(tokens1))
	for _, t := range tokens1 {
		set1[t] = struct{}{}
	}
	set2 := make(map[string]struct{}, len(tokens2))
	for _, t := range tokens2 {
		set2[t] = struct{}{}
	}
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	intersection := 0
	for t := range set1 {
		if _, ok := set2[t]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}
