package analyzer

import (
	"fmt"
	"math/bits"
	"math/rand/v2"

	"github.com/ludo-technologies/neardup/domain"
)

// seedStream is the second PCG word; the user seed fills the first.
const seedStream = 0x5eed_1234_cafe_babe

// HashFamily holds num_hashes universal hash functions of the form
// h_i(x) = (a_i*x + b_i) mod maxHash. It is generated once per run and is
// read-only afterwards, so it can be shared between goroutines.
type HashFamily struct {
	a       []uint64
	b       []uint64
	maxHash uint64
}

// NewHashFamily draws numHashes (a_i, b_i) pairs with a_i in [1, maxHash-1]
// and b_i in [0, maxHash-1]. A non-nil seed makes the family reproducible;
// a nil seed draws from the runtime's random source.
func NewHashFamily(numHashes int, maxHash uint64, seed *int64) (*HashFamily, error) {
	if numHashes <= 0 {
		return nil, domain.NewConfigError(fmt.Sprintf("num_hashes must be > 0, got %d", numHashes), nil)
	}
	if maxHash < 2 {
		return nil, domain.NewConfigError(fmt.Sprintf("max_hash must be >= 2, got %d", maxHash), nil)
	}

	var src rand.Source
	if seed != nil {
		src = rand.NewPCG(uint64(*seed), seedStream)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	rng := rand.New(src)

	hf := &HashFamily{
		a:       make([]uint64, numHashes),
		b:       make([]uint64, numHashes),
		maxHash: maxHash,
	}
	for i := 0; i < numHashes; i++ {
		hf.a[i] = 1 + rng.Uint64N(maxHash-1)
		hf.b[i] = rng.Uint64N(maxHash)
	}
	return hf, nil
}

// Size returns the number of hash functions.
func (hf *HashFamily) Size() int { return len(hf.a) }

// MaxHash returns the modulus, which is also the empty-slot sentinel.
func (hf *HashFamily) MaxHash() uint64 { return hf.maxHash }

// Coefficients returns the (a_i, b_i) pair of function i.
func (hf *HashFamily) Coefficients(i int) (a, b uint64) {
	return hf.a[i], hf.b[i]
}

// Apply evaluates h_i(x). The product is computed in 128 bits, so any
// maxHash is safe: a_i*(x mod m) + b_i < m^2 keeps the high word below m.
func (hf *HashFamily) Apply(i int, x uint64) uint64 {
	m := hf.maxHash
	hi, lo := bits.Mul64(hf.a[i], x%m)
	var carry uint64
	lo, carry = bits.Add64(lo, hf.b[i], 0)
	hi += carry
	_, rem := bits.Div64(hi, lo, m)
	return rem
}
