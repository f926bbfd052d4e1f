package analyzer

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DuplicateMap maps a record to the records judged similar to it, itself excluded
type DuplicateMap map[RecordKey][]RecordKey

// CandidatePairs counts unordered candidate pairs in the map.
func (dm DuplicateMap) CandidatePairs() int {
	n := 0
	for k, vs := range dm {
		for _, v := range vs {
			if v > k {
				n++
			} else if _, ok := dm[v]; !ok {
				// Only reachable for maps that are not symmetric
				n++
			}
		}
	}
	return n
}

// ProgressFunc receives the number of processed units and the total
type ProgressFunc func(processed, total int)

// ResolverOptions tunes a DuplicateResolver
type ResolverOptions struct {
	// Workers bounds the goroutines per pass; 0 means runtime.NumCPU().
	Workers int
	// VerifyThreshold discards LSH candidates whose estimated Jaccard
	// similarity is below it. 0 keeps every band collision.
	VerifyThreshold float64
	// Progress is called once per record per pass. It must be safe for
	// concurrent use.
	Progress ProgressFunc
	Logger   *zap.Logger
}

// DuplicateResolver runs the two LSH passes over a whole corpus
type DuplicateResolver struct {
	hasher    *MinHasher
	extractor ShingleExtractor
	lsh       LSHConfig
	opts      ResolverOptions
	logger    *zap.Logger
}

// Detection is the full output of a resolver run
type Detection struct {
	Duplicates DuplicateMap
	// Signatures holds the signature of every record, by ordinal
	Signatures []*MinHashSignature
	Index      *LSHIndex
}

// NewDuplicateResolver validates the banding parameters against the
// hasher's signature length before any record is seen.
func NewDuplicateResolver(hasher *MinHasher, extractor ShingleExtractor, lsh LSHConfig, opts ResolverOptions) (*DuplicateResolver, error) {
	if hasher == nil {
		return nil, fmt.Errorf("minhasher cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("shingle extractor cannot be nil")
	}
	// Constructing a throwaway index runs the same ConfigError checks
	if _, err := NewLSHIndex(lsh, hasher.NumHashes()); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuplicateResolver{
		hasher:    hasher,
		extractor: extractor,
		lsh:       lsh,
		opts:      opts,
		logger:    logger,
	}, nil
}

// DetectAllDuplicates indexes every text by ordinal, then queries the index
// with each text's own signature.
func (r *DuplicateResolver) DetectAllDuplicates(ctx context.Context, texts []string) (DuplicateMap, error) {
	d, err := r.Detect(ctx, texts)
	if err != nil {
		return nil, err
	}
	return d.Duplicates, nil
}

// Detect is DetectAllDuplicates keeping the signatures and the index. One
// index and one hasher serve both passes, so candidate sets are symmetric.
func (r *DuplicateResolver) Detect(ctx context.Context, texts []string) (*Detection, error) {
	index, err := NewLSHIndex(r.lsh, r.hasher.NumHashes())
	if err != nil {
		return nil, err
	}

	n := len(texts)
	total := 2 * n
	var processed atomic.Int64
	tick := func() {
		if r.opts.Progress != nil {
			r.opts.Progress(int(processed.Add(1)), total)
		}
	}

	// Pass 1: signatures + insertion
	signatures := make([]*MinHashSignature, n)
	err = r.forEachRecord(ctx, n, func(i int) error {
		sig := r.hasher.ComputeSignature(r.extractor.Extract(texts[i]))
		signatures[i] = sig
		if err := index.Insert(i, sig); err != nil {
			return err
		}
		tick()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing pass failed: %w", err)
	}
	r.logger.Debug("indexed corpus",
		zap.Int("records", n),
		zap.Int("buckets", index.Stats().NumBuckets))

	// Pass 2: queries against the now frozen index
	results := make([][]RecordKey, n)
	err = r.forEachRecord(ctx, n, func(i int) error {
		candidates, err := index.Query(signatures[i], i)
		if err != nil {
			return err
		}
		if r.opts.VerifyThreshold > 0 {
			candidates = r.verify(signatures, i, candidates)
		}
		results[i] = candidates
		tick()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query pass failed: %w", err)
	}

	duplicates := make(DuplicateMap)
	for i, candidates := range results {
		if len(candidates) > 0 {
			duplicates[i] = candidates
		}
	}
	r.logger.Debug("resolved candidates",
		zap.Int("records_with_candidates", len(duplicates)),
		zap.Int("candidate_pairs", duplicates.CandidatePairs()))

	return &Detection{Duplicates: duplicates, Signatures: signatures, Index: index}, nil
}

// verify keeps the candidates whose signature agreement with record i
// reaches the threshold. Agreement is symmetric, so verified maps stay
// symmetric.
func (r *DuplicateResolver) verify(signatures []*MinHashSignature, i int, candidates []RecordKey) []RecordKey {
	kept := candidates[:0]
	for _, c := range candidates {
		if r.hasher.EstimateJaccardSimilarity(signatures[i], signatures[c]) >= r.opts.VerifyThreshold {
			kept = append(kept, c)
		}
	}
	return kept
}

// forEachRecord runs fn for ordinals [0, n) on a bounded worker pool.
// Cancellation is checked between records; the first error stops scheduling.
func (r *DuplicateResolver) forEachRecord(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// errgroup only reports errors from fn; surface a cancellation that
	// stopped the loop before every record was scheduled
	return ctx.Err()
}
