package analyzer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/ludo-technologies/neardup/domain"
)

// RecordKey identifies a corpus record by its 0-based ordinal
type RecordKey = int

// NoRecord is passed to Query when no key should be excluded
const NoRecord RecordKey = -1

// LSHConfig holds the banding parameters
type LSHConfig struct {
	Bands int // Number of bands
	Rows  int // Rows per band
}

// bandTable is the bucket table of one band. Each band has its own lock so
// inserts into different bands never contend.
type bandTable struct {
	mu      sync.RWMutex
	buckets map[uint64][]RecordKey // band_hash -> record keys
}

// LSHIndex implements Locality Sensitive Hashing with banding technique
type LSHIndex struct {
	bands  int
	rows   int
	tables []*bandTable

	sigMu      sync.RWMutex
	signatures map[RecordKey]*MinHashSignature

	// keyLocks serialises inserts of the same key across the signature map
	// and the band tables.
	keyLocks [keyLockStripes]sync.Mutex
}

const keyLockStripes = 64

func (idx *LSHIndex) keyLock(key RecordKey) *sync.Mutex {
	return &idx.keyLocks[uint(key)%keyLockStripes]
}

// NewLSHIndex creates an index whose bands*rows must equal numHashes, the
// signature length of the MinHasher it will be fed by.
func NewLSHIndex(config LSHConfig, numHashes int) (*LSHIndex, error) {
	if config.Bands <= 0 || config.Rows <= 0 {
		return nil, domain.NewConfigError(
			fmt.Sprintf("bands and rows must be > 0, got bands=%d rows=%d", config.Bands, config.Rows), nil)
	}
	if config.Bands*config.Rows != numHashes {
		return nil, domain.NewConfigError(
			fmt.Sprintf("bands*rows must equal signature length: %d*%d != %d", config.Bands, config.Rows, numHashes), nil)
	}

	tables := make([]*bandTable, config.Bands)
	for i := range tables {
		tables[i] = &bandTable{buckets: make(map[uint64][]RecordKey)}
	}
	return &LSHIndex{
		bands:      config.Bands,
		rows:       config.Rows,
		tables:     tables,
		signatures: make(map[RecordKey]*MinHashSignature),
	}, nil
}

func (idx *LSHIndex) checkSignature(signature *MinHashSignature) error {
	if signature == nil {
		return domain.NewInvariantError("signature cannot be nil")
	}
	if n := len(signature.GetSignatures()); n != idx.bands*idx.rows {
		return domain.NewInvariantError(fmt.Sprintf("signature has %d hashes, index expects %d (bands=%d, rows=%d)",
			n, idx.bands*idx.rows, idx.bands, idx.rows))
	}
	return nil
}

// computeBandHash hashes rows [band*rows, (band+1)*rows) of the signature.
// Band values are encoded little-endian, so the hash is stable across runs
// and platforms.
func (idx *LSHIndex) computeBandHash(signatures []uint64, band int) uint64 {
	start := band * idx.rows
	var buf [8]byte
	d := xxhash.New()
	for _, v := range signatures[start : start+idx.rows] {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// Insert adds key to the bucket of every band of signature. Inserting the
// same key with an identical signature again is a no-op; a different
// signature replaces the previous entries for key. Concurrent inserts of the
// same key are applied one at a time.
func (idx *LSHIndex) Insert(key RecordKey, signature *MinHashSignature) error {
	if err := idx.checkSignature(signature); err != nil {
		return err
	}

	kl := idx.keyLock(key)
	kl.Lock()
	defer kl.Unlock()

	idx.sigMu.Lock()
	prev, exists := idx.signatures[key]
	if exists && prev.Equal(signature) {
		idx.sigMu.Unlock()
		return nil
	}
	idx.signatures[key] = signature
	idx.sigMu.Unlock()

	sigs := signature.GetSignatures()
	var prevSigs []uint64
	if exists {
		prevSigs = prev.GetSignatures()
	}
	for band, table := range idx.tables {
		h := idx.computeBandHash(sigs, band)
		table.mu.Lock()
		if prevSigs != nil {
			table.remove(idx.computeBandHash(prevSigs, band), key)
		}
		table.buckets[h] = append(table.buckets[h], key)
		table.mu.Unlock()
	}
	return nil
}

func (t *bandTable) remove(h uint64, key RecordKey) {
	keys, ok := t.buckets[h]
	if !ok {
		return
	}
	for i, k := range keys {
		if k == key {
			keys[i] = keys[len(keys)-1]
			keys = keys[:len(keys)-1]
			break
		}
	}
	if len(keys) == 0 {
		delete(t.buckets, h)
		return
	}
	t.buckets[h] = keys
}

// Query returns every key sharing at least one band with signature, sorted
// ascending. exclude is removed from the result; pass NoRecord to keep a
// self-match.
func (idx *LSHIndex) Query(signature *MinHashSignature, exclude RecordKey) ([]RecordKey, error) {
	counts, err := idx.bandMatches(signature, exclude)
	if err != nil {
		return nil, err
	}
	candidates := make([]RecordKey, 0, len(counts))
	for k := range counts {
		candidates = append(candidates, k)
	}
	sort.Ints(candidates)
	return candidates, nil
}

// SharedBands counts the bands in which two signatures hash identically.
func (idx *LSHIndex) SharedBands(sig1, sig2 *MinHashSignature) (int, error) {
	if err := idx.checkSignature(sig1); err != nil {
		return 0, err
	}
	if err := idx.checkSignature(sig2); err != nil {
		return 0, err
	}
	shared := 0
	for band := 0; band < idx.bands; band++ {
		if idx.computeBandHash(sig1.GetSignatures(), band) == idx.computeBandHash(sig2.GetSignatures(), band) {
			shared++
		}
	}
	return shared, nil
}

func (idx *LSHIndex) bandMatches(signature *MinHashSignature, exclude RecordKey) (map[RecordKey]int, error) {
	if err := idx.checkSignature(signature); err != nil {
		return nil, err
	}
	sigs := signature.GetSignatures()
	counts := make(map[RecordKey]int)
	for band, table := range idx.tables {
		h := idx.computeBandHash(sigs, band)
		table.mu.RLock()
		for _, k := range table.buckets[h] {
			if k != exclude {
				counts[k]++
			}
		}
		table.mu.RUnlock()
	}
	return counts, nil
}

// Signature retrieves the stored signature for a key
func (idx *LSHIndex) Signature(key RecordKey) *MinHashSignature {
	idx.sigMu.RLock()
	defer idx.sigMu.RUnlock()
	return idx.signatures[key]
}

// Size returns the number of keys in the index
func (idx *LSHIndex) Size() int {
	idx.sigMu.RLock()
	defer idx.sigMu.RUnlock()
	return len(idx.signatures)
}

// Config returns the banding configuration
func (idx *LSHIndex) Config() LSHConfig {
	return LSHConfig{Bands: idx.bands, Rows: idx.rows}
}

// Threshold returns the approximate similarity at which candidacy becomes
// likely: (1/b)^(1/r).
func (idx *LSHIndex) Threshold() float64 {
	return BandThreshold(idx.bands, idx.rows)
}

// BandThreshold is the S-curve inflection point for b bands of r rows.
func BandThreshold(bands, rows int) float64 {
	return math.Pow(1.0/float64(bands), 1.0/float64(rows))
}

// CandidateProbability is the probability that two records with Jaccard
// similarity s collide in at least one band: 1 - (1 - s^r)^b.
func CandidateProbability(s float64, bands, rows int) float64 {
	if s <= 0 {
		return 0.0
	}
	if s >= 1 {
		return 1.0
	}
	return 1.0 - math.Pow(1.0-math.Pow(s, float64(rows)), float64(bands))
}

// EstimateCandidateRate returns CandidateProbability for this index. Below
// the threshold it is the false positive rate.
func (idx *LSHIndex) EstimateCandidateRate(trueSimilarity float64) float64 {
	return CandidateProbability(trueSimilarity, idx.bands, idx.rows)
}

// EstimateFalseNegativeRate estimates the chance that a pair with the given
// similarity never shares a band
func (idx *LSHIndex) EstimateFalseNegativeRate(trueSimilarity float64) float64 {
	return 1.0 - CandidateProbability(trueSimilarity, idx.bands, idx.rows)
}

// LSHIndexStats provides statistics about the LSH index
type LSHIndexStats struct {
	NumRecords       int     // Number of keys indexed
	NumBuckets       int     // Number of buckets across all bands
	Bands            int     // Number of bands
	Rows             int     // Rows per band
	Threshold        float64 // Approximate similarity threshold
	MinBucketSize    int     // Minimum bucket size
	MaxBucketSize    int     // Maximum bucket size
	AvgBucketSize    float64 // Average bucket size
	MedianBucketSize float64 // Median bucket size
}

// Stats returns statistics about the index
func (idx *LSHIndex) Stats() LSHIndexStats {
	stats := LSHIndexStats{
		NumRecords: idx.Size(),
		Bands:      idx.bands,
		Rows:       idx.rows,
		Threshold:  idx.Threshold(),
	}

	var bucketSizes []int
	total := 0
	for _, table := range idx.tables {
		table.mu.RLock()
		for _, keys := range table.buckets {
			bucketSizes = append(bucketSizes, len(keys))
			total += len(keys)
		}
		table.mu.RUnlock()
	}
	stats.NumBuckets = len(bucketSizes)
	if len(bucketSizes) == 0 {
		return stats
	}

	sort.Ints(bucketSizes)
	stats.MinBucketSize = bucketSizes[0]
	stats.MaxBucketSize = bucketSizes[len(bucketSizes)-1]
	stats.AvgBucketSize = float64(total) / float64(len(bucketSizes))
	if len(bucketSizes)%2 == 0 {
		mid := len(bucketSizes) / 2
		stats.MedianBucketSize = float64(bucketSizes[mid-1]+bucketSizes[mid]) / 2.0
	} else {
		stats.MedianBucketSize = float64(bucketSizes[len(bucketSizes)/2])
	}
	return stats
}

// ComputeOptimalBandParameters picks the divisor pair bands*rows == numHashes
// whose threshold is closest to targetThreshold.
func ComputeOptimalBandParameters(numHashes int, targetThreshold float64) (LSHConfig, error) {
	if numHashes <= 0 {
		return LSHConfig{}, domain.NewConfigError(fmt.Sprintf("num_hashes must be > 0, got %d", numHashes), nil)
	}
	if targetThreshold <= 0 || targetThreshold >= 1 {
		return LSHConfig{}, domain.NewConfigError("target threshold must be between 0 and 1 (exclusive)", nil)
	}

	best := LSHConfig{Bands: numHashes, Rows: 1}
	bestError := math.Inf(1)
	for bands := 1; bands <= numHashes; bands++ {
		if numHashes%bands != 0 {
			continue
		}
		rows := numHashes / bands
		if e := math.Abs(BandThreshold(bands, rows) - targetThreshold); e < bestError {
			bestError = e
			best = LSHConfig{Bands: bands, Rows: rows}
		}
	}
	return best, nil
}
