package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ludo-technologies/neardup/domain"
	"github.com/ludo-technologies/neardup/internal/analyzer"
)

// DedupServiceImpl implements the domain.DedupService interface
type DedupServiceImpl struct {
	progress domain.ProgressManager
	logger   *zap.Logger
}

// NewDedupService creates a new dedup service. progress may be nil.
func NewDedupService(progress domain.ProgressManager, logger *zap.Logger) *DedupServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DedupServiceImpl{
		progress: progress,
		logger:   logger,
	}
}

// engine bundles the per-run collaborators built from a request
type engine struct {
	hasher    *analyzer.MinHasher
	extractor analyzer.ShingleExtractor
	lsh       analyzer.LSHConfig
}

func newEngine(req *domain.DedupRequest) (*engine, error) {
	if err := req.ValidateParameters(); err != nil {
		return nil, err
	}
	hasher, err := analyzer.NewSeededMinHasher(req.NumHashes, req.MaxHash, req.Seed)
	if err != nil {
		return nil, err
	}
	return &engine{
		hasher:    hasher,
		extractor: analyzer.KShingler{K: req.ShingleSize, Normalize: req.Normalize},
		lsh:       analyzer.LSHConfig{Bands: req.Bands, Rows: req.Rows},
	}, nil
}

// Deduplicate detects near-duplicates in corpus and resolves the drop set
func (s *DedupServiceImpl) Deduplicate(ctx context.Context, corpus *domain.Corpus, req *domain.DedupRequest) (*domain.DedupResponse, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if req == nil {
		return nil, fmt.Errorf("dedup request cannot be nil")
	}
	if corpus == nil {
		corpus = &domain.Corpus{}
	}

	startTime := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))

	eng, err := newEngine(req)
	if err != nil {
		return nil, fmt.Errorf("invalid dedup parameters: %w", err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	n := len(corpus.Records)
	opts := analyzer.ResolverOptions{
		Workers:         req.Workers,
		VerifyThreshold: req.VerifyThreshold,
		Logger:          logger,
	}
	if s.progress != nil && n > 0 {
		s.progress.Initialize(2 * n)
		s.progress.Start()
		opts.Progress = s.progress.Update
	}

	resolver, err := analyzer.NewDuplicateResolver(eng.hasher, eng.extractor, eng.lsh, opts)
	if err != nil {
		return nil, fmt.Errorf("invalid dedup parameters: %w", err)
	}

	detection, err := resolver.Detect(ctx, corpus.Texts())
	if s.progress != nil && n > 0 {
		s.progress.Complete(err == nil)
	}
	if err != nil {
		return nil, fmt.Errorf("duplicate detection failed: %w", err)
	}

	resolution := retentionPolicy(req.Retention, corpus).Resolve(detection.Duplicates)
	groups := buildGroups(resolution, detection, eng.hasher, corpus)
	kept := analyzer.FilterDropped(corpus.Records, resolution.Drop)

	stats := &domain.DedupStatistics{
		FilesRead:             len(corpus.Files),
		TotalRecords:          n,
		KeptRecords:           len(kept),
		DroppedRecords:        len(resolution.Drop),
		DuplicateGroups:       len(groups),
		RecordsWithCandidates: len(detection.Duplicates),
		CandidatePairs:        detection.Duplicates.CandidatePairs(),
	}

	logger.Info("deduplication finished",
		zap.Int("records", stats.TotalRecords),
		zap.Int("dropped", stats.DroppedRecords),
		zap.Int("groups", stats.DuplicateGroups),
		zap.Duration("elapsed", time.Since(startTime)))

	return &domain.DedupResponse{
		RunID:      runID,
		Groups:     groups,
		DropSet:    resolution.Drop,
		Statistics: stats,
		Parameters: parametersOf(req),
		Kept:       kept,
		Request:    req,
		Duration:   time.Since(startTime).Milliseconds(),
		Success:    true,
	}, nil
}

// EstimateSimilarity compares two texts with the engine configured by req
func (s *DedupServiceImpl) EstimateSimilarity(ctx context.Context, text1, text2 string, req *domain.DedupRequest) (*domain.SimilarityEstimate, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if req == nil {
		return nil, fmt.Errorf("dedup request cannot be nil")
	}
	eng, err := newEngine(req)
	if err != nil {
		return nil, fmt.Errorf("invalid dedup parameters: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shingles1 := eng.extractor.Extract(text1)
	shingles2 := eng.extractor.Extract(text2)
	sig1 := eng.hasher.ComputeSignature(shingles1)
	sig2 := eng.hasher.ComputeSignature(shingles2)

	index, err := analyzer.NewLSHIndex(eng.lsh, eng.hasher.NumHashes())
	if err != nil {
		return nil, err
	}
	shared, err := index.SharedBands(sig1, sig2)
	if err != nil {
		return nil, err
	}

	exact := analyzer.ComputeJaccardSimilarity(shingles1, shingles2)
	return &domain.SimilarityEstimate{
		Exact:                exact,
		Estimated:            eng.hasher.EstimateJaccardSimilarity(sig1, sig2),
		CandidateProbability: index.EstimateCandidateRate(exact),
		SharedBands:          shared,
		FalseNegativeRate:    index.EstimateFalseNegativeRate(exact),
		Parameters:           parametersOf(req),
	}, nil
}

// SuggestBanding picks bands and rows for a signature of numHashes values so
// that candidacy becomes likely near target.
func SuggestBanding(numHashes int, target float64) (*domain.BandingSuggestion, error) {
	cfg, err := analyzer.ComputeOptimalBandParameters(numHashes, target)
	if err != nil {
		return nil, err
	}
	return &domain.BandingSuggestion{
		Target:            target,
		Bands:             cfg.Bands,
		Rows:              cfg.Rows,
		Threshold:         analyzer.BandThreshold(cfg.Bands, cfg.Rows),
		FalseNegativeRate: 1.0 - analyzer.CandidateProbability(target, cfg.Bands, cfg.Rows),
	}, nil
}

func retentionPolicy(mode domain.RetentionMode, corpus *domain.Corpus) analyzer.RetentionPolicy {
	switch mode {
	case domain.RetentionKeepLongest:
		lengths := make([]int, len(corpus.Records))
		for i, r := range corpus.Records {
			lengths[i] = len([]rune(r.Text))
		}
		return analyzer.KeepLongestPolicy{Lengths: lengths}
	case domain.RetentionUnion:
		return analyzer.UnionPolicy{}
	default:
		return analyzer.KeepFirstPolicy{}
	}
}

// buildGroups converts resolution groups into report groups, scoring each
// by the mean estimated similarity of its dropped members to the kept one.
func buildGroups(resolution *analyzer.Resolution, detection *analyzer.Detection, hasher *analyzer.MinHasher, corpus *domain.Corpus) []*domain.DuplicateGroup {
	groups := make([]*domain.DuplicateGroup, 0, len(resolution.Groups))
	for i, g := range resolution.Groups {
		total := 0.0
		for _, d := range g.Dropped {
			total += hasher.EstimateJaccardSimilarity(detection.Signatures[g.Kept], detection.Signatures[d])
		}
		group := &domain.DuplicateGroup{
			ID:      i + 1,
			Kept:    g.Kept,
			Dropped: g.Dropped,
		}
		if len(g.Dropped) > 0 {
			group.Similarity = total / float64(len(g.Dropped))
		}
		group.KeptSource = sourceOf(corpus, g.Kept)
		for _, d := range g.Dropped {
			group.DroppedSources = append(group.DroppedSources, sourceOf(corpus, d))
		}
		groups = append(groups, group)
	}
	return groups
}

func sourceOf(corpus *domain.Corpus, key analyzer.RecordKey) string {
	if key >= 0 && key < len(corpus.Records) {
		return corpus.Records[key].Source
	}
	return ""
}

func parametersOf(req *domain.DedupRequest) *domain.DedupParameters {
	return &domain.DedupParameters{
		NumHashes:       req.NumHashes,
		Bands:           req.Bands,
		Rows:            req.Rows,
		MaxHash:         req.MaxHash,
		ShingleSize:     req.ShingleSize,
		Seed:            req.Seed,
		VerifyThreshold: req.VerifyThreshold,
		Retention:       req.Retention,
		Threshold:       analyzer.BandThreshold(req.Bands, req.Rows),
	}
}
