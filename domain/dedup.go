package domain

import (
	"context"
	"fmt"
	"io"
	"time"
)

// CorpusFormat is the on-disk format of a corpus or of the deduplicated output
type CorpusFormat string

const (
	// CorpusFormatAuto picks the format of each file from its extension.
	CorpusFormatAuto CorpusFormat = "auto"
	// CorpusFormatJSONL is one JSON object per line.
	CorpusFormatJSONL CorpusFormat = "jsonl"
	// CorpusFormatJSON is a single JSON array of objects.
	CorpusFormatJSON CorpusFormat = "json"
	// CorpusFormatText is one record per line; the whole line is the text.
	CorpusFormatText CorpusFormat = "text"
)

// ParseCorpusFormat validates a corpus format name.
func ParseCorpusFormat(s string) (CorpusFormat, error) {
	switch f := CorpusFormat(s); f {
	case CorpusFormatAuto, CorpusFormatJSONL, CorpusFormatJSON, CorpusFormatText:
		return f, nil
	case "":
		return CorpusFormatAuto, nil
	case "txt":
		return CorpusFormatText, nil
	case "ndjson":
		return CorpusFormatJSONL, nil
	default:
		return "", NewUnsupportedFormatError(s)
	}
}

// RetentionMode selects which member of a duplicate cluster survives
type RetentionMode string

const (
	// RetentionKeepFirst keeps the lowest ordinal of every cluster.
	RetentionKeepFirst RetentionMode = "keep_first"
	// RetentionKeepLongest keeps the record with the longest text,
	// breaking ties by ordinal.
	RetentionKeepLongest RetentionMode = "keep_longest"
	// RetentionUnion drops every record listed as another's duplicate, so
	// clusters leave no survivor.
	RetentionUnion RetentionMode = "union"
)

// ParseRetentionMode validates a retention mode name.
func ParseRetentionMode(s string) (RetentionMode, error) {
	switch m := RetentionMode(s); m {
	case RetentionKeepFirst, RetentionKeepLongest, RetentionUnion:
		return m, nil
	default:
		return "", NewConfigError(fmt.Sprintf("invalid retention '%s', must be one of: keep_first, keep_longest, union", s), nil)
	}
}

// Record is a single corpus entry
type Record struct {
	// Ordinal is the stable 0-based position of the record in the corpus
	Ordinal int `json:"ordinal" yaml:"ordinal"`
	// Source is "path:line" for the line or element the record came from
	Source string `json:"source" yaml:"source"`
	// Text is the field the corpus is deduplicated on
	Text string `json:"text" yaml:"text"`
	// Raw is the original encoded record, written back unchanged
	Raw []byte `json:"-" yaml:"-"`
}

// Corpus is an ordered, finite sequence of records
type Corpus struct {
	Records []*Record
	Files   []string
}

// Texts returns the deduplication field of every record, in ordinal order.
func (c *Corpus) Texts() []string {
	texts := make([]string, len(c.Records))
	for i, r := range c.Records {
		texts[i] = r.Text
	}
	return texts
}

// DedupRequest represents a request for near-duplicate detection
type DedupRequest struct {
	// Input parameters
	Paths           []string     `json:"paths" yaml:"paths"`
	IncludePatterns []string     `json:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns []string     `json:"exclude_patterns" yaml:"exclude_patterns"`
	InputFormat     CorpusFormat `json:"input_format" yaml:"input_format"`
	TextField       string       `json:"text_field" yaml:"text_field"`

	// Shingling
	ShingleSize int  `json:"shingle_size" yaml:"shingle_size"`
	Normalize   bool `json:"normalize" yaml:"normalize"`

	// MinHash / LSH parameters
	NumHashes int    `json:"num_hashes" yaml:"num_hashes"`
	Bands     int    `json:"bands" yaml:"bands"`
	Rows      int    `json:"rows" yaml:"rows"`
	MaxHash   uint64 `json:"max_hash" yaml:"max_hash"`
	Seed      *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Resolution
	VerifyThreshold float64       `json:"verify_threshold" yaml:"verify_threshold"`
	Retention       RetentionMode `json:"retention" yaml:"retention"`

	// Performance
	Workers int           `json:"workers" yaml:"workers"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Deduplicated records
	OutputPath   string       `json:"output_path" yaml:"output_path"`
	RecordFormat CorpusFormat `json:"record_format" yaml:"record_format"`

	// Report
	ReportFormat OutputFormat `json:"report_format" yaml:"report_format"`
	ReportWriter io.Writer    `json:"-" yaml:"-"`
	ReportPath   string       `json:"report_path" yaml:"report_path"`
	ShowGroups   bool         `json:"show_groups" yaml:"show_groups"`

	// Configuration file
	ConfigPath string `json:"config_path" yaml:"config_path"`
}

// ValidateParameters checks the signature and banding parameters. It is
// the fail-fast check run before any record is read.
func (req *DedupRequest) ValidateParameters() error {
	if req.NumHashes <= 0 {
		return NewConfigError(fmt.Sprintf("num_hashes must be > 0, got %d", req.NumHashes), nil)
	}
	if req.Bands <= 0 || req.Rows <= 0 {
		return NewConfigError(fmt.Sprintf("bands and rows must be > 0, got bands=%d rows=%d", req.Bands, req.Rows), nil)
	}
	if req.Bands*req.Rows != req.NumHashes {
		return NewConfigError(fmt.Sprintf("bands*rows must equal num_hashes: %d*%d != %d",
			req.Bands, req.Rows, req.NumHashes), nil)
	}
	if req.MaxHash < 2 {
		return NewConfigError(fmt.Sprintf("max_hash must be >= 2, got %d", req.MaxHash), nil)
	}
	if req.ShingleSize < 1 {
		return NewConfigError(fmt.Sprintf("shingle_size must be >= 1, got %d", req.ShingleSize), nil)
	}
	if req.VerifyThreshold < 0.0 || req.VerifyThreshold > 1.0 {
		return NewConfigError("verify_threshold must be between 0.0 and 1.0", nil)
	}
	if _, err := ParseRetentionMode(string(req.Retention)); err != nil {
		return err
	}
	if req.Workers < 0 {
		return NewConfigError(fmt.Sprintf("workers must be >= 0, got %d", req.Workers), nil)
	}
	return nil
}

// Validate validates a dedup request
func (req *DedupRequest) Validate() error {
	if len(req.Paths) == 0 {
		return NewValidationError("paths cannot be empty")
	}
	if err := req.ValidateParameters(); err != nil {
		return err
	}
	if _, err := ParseCorpusFormat(string(req.InputFormat)); err != nil {
		return NewConfigError("invalid input format", err)
	}
	if req.InputFormat != CorpusFormatText && req.TextField == "" {
		return NewConfigError("text_field cannot be empty for structured corpora", nil)
	}
	if _, err := ParseOutputFormat(string(req.ReportFormat)); err != nil {
		return NewConfigError("invalid report format", err)
	}
	if req.OutputPath != "" {
		if req.RecordFormat != CorpusFormatJSONL && req.RecordFormat != CorpusFormatJSON {
			return NewConfigError(fmt.Sprintf("invalid record format '%s', must be one of: jsonl, json", req.RecordFormat), nil)
		}
	}
	return nil
}

// HasValidReportWriter checks if the request has a valid report writer
func (req *DedupRequest) HasValidReportWriter() bool {
	return req.ReportWriter != nil || req.ReportPath != ""
}

// DefaultDedupRequest returns a default dedup request
func DefaultDedupRequest() *DedupRequest {
	return &DedupRequest{
		Paths:           []string{"."},
		IncludePatterns: DefaultIncludePatterns(),
		ExcludePatterns: DefaultExcludePatterns(),
		InputFormat:     DefaultInputFormat,
		TextField:       DefaultTextField,
		ShingleSize:     DefaultShingleSize,
		Normalize:       DefaultNormalize,
		NumHashes:       DefaultNumHashes,
		Bands:           DefaultBands,
		Rows:            DefaultRows,
		MaxHash:         DefaultMaxHash,
		VerifyThreshold: DefaultVerifyThreshold,
		Retention:       DefaultRetention,
		Workers:         DefaultWorkers,
		Timeout:         DefaultTimeoutSeconds * time.Second,
		RecordFormat:    DefaultRecordFormat,
		ReportFormat:    OutputFormatText,
		ShowGroups:      true,
	}
}

// DuplicateGroup is a kept record together with the records dropped in its favour
type DuplicateGroup struct {
	ID         int     `json:"id" yaml:"id" csv:"id"`
	Kept       int     `json:"kept" yaml:"kept" csv:"kept"`
	KeptSource string  `json:"kept_source,omitempty" yaml:"kept_source,omitempty" csv:"kept_source"`
	Dropped    []int   `json:"dropped" yaml:"dropped" csv:"dropped"`
	// DroppedSources parallels Dropped
	DroppedSources []string `json:"dropped_sources,omitempty" yaml:"dropped_sources,omitempty" csv:"-"`
	Similarity     float64  `json:"similarity" yaml:"similarity" csv:"similarity"`
}

// Size returns the number of records in the group, kept record included
func (g *DuplicateGroup) Size() int {
	return len(g.Dropped) + 1
}

// DedupParameters echoes the effective engine parameters in a response
type DedupParameters struct {
	NumHashes       int           `json:"num_hashes" yaml:"num_hashes"`
	Bands           int           `json:"bands" yaml:"bands"`
	Rows            int           `json:"rows" yaml:"rows"`
	MaxHash         uint64        `json:"max_hash" yaml:"max_hash"`
	ShingleSize     int           `json:"shingle_size" yaml:"shingle_size"`
	Seed            *int64        `json:"seed,omitempty" yaml:"seed,omitempty"`
	VerifyThreshold float64       `json:"verify_threshold" yaml:"verify_threshold"`
	Retention       RetentionMode `json:"retention" yaml:"retention"`
	// Threshold is the approximate similarity at which candidacy becomes likely
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DedupStatistics provides statistics about a deduplication run
type DedupStatistics struct {
	FilesRead             int `json:"files_read" yaml:"files_read"`
	TotalRecords          int `json:"total_records" yaml:"total_records"`
	KeptRecords           int `json:"kept_records" yaml:"kept_records"`
	DroppedRecords        int `json:"dropped_records" yaml:"dropped_records"`
	DuplicateGroups       int `json:"duplicate_groups" yaml:"duplicate_groups"`
	RecordsWithCandidates int `json:"records_with_candidates" yaml:"records_with_candidates"`
	CandidatePairs        int `json:"candidate_pairs" yaml:"candidate_pairs"`
}

// DedupResponse represents the response from a deduplication run
type DedupResponse struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	Groups     []*DuplicateGroup `json:"groups" yaml:"groups"`
	DropSet    []int             `json:"drop_set" yaml:"drop_set"`
	Statistics *DedupStatistics  `json:"statistics" yaml:"statistics"`
	Parameters *DedupParameters  `json:"parameters" yaml:"parameters"`

	// Kept holds the surviving records in original relative order
	Kept []*Record `json:"-" yaml:"-"`
	// Request is the effective request the run was configured with
	Request *DedupRequest `json:"-" yaml:"-"`

	Duration int64  `json:"duration_ms" yaml:"duration_ms"`
	Success  bool   `json:"success" yaml:"success"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SimilarityEstimate compares two texts directly
type SimilarityEstimate struct {
	Exact                float64 `json:"exact_jaccard" yaml:"exact_jaccard"`
	Estimated            float64 `json:"estimated_jaccard" yaml:"estimated_jaccard"`
	CandidateProbability float64 `json:"candidate_probability" yaml:"candidate_probability"`
	SharedBands          int     `json:"shared_bands" yaml:"shared_bands"`
	// FalseNegativeRate is the chance that a pair this similar never shares a band
	FalseNegativeRate float64 `json:"false_negative_rate" yaml:"false_negative_rate"`

	Parameters *DedupParameters   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Suggestion *BandingSuggestion `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// BandingSuggestion is the bands/rows split of a signature length whose
// S-curve threshold lies closest to a target similarity.
type BandingSuggestion struct {
	Target    float64 `json:"target_threshold" yaml:"target_threshold"`
	Bands     int     `json:"bands" yaml:"bands"`
	Rows      int     `json:"rows" yaml:"rows"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// FalseNegativeRate is evaluated at the target similarity
	FalseNegativeRate float64 `json:"false_negative_rate" yaml:"false_negative_rate"`
}

// CorpusReader loads a corpus from the paths of a request
type CorpusReader interface {
	// ReadCorpus collects and parses every corpus file matched by the request
	ReadCorpus(ctx context.Context, req *DedupRequest) (*Corpus, error)
}

// RecordWriter persists the deduplicated record sequence
type RecordWriter interface {
	// WriteRecords writes records, in the given order, to path
	WriteRecords(records []*Record, format CorpusFormat, path string) error
}

// DedupService defines the interface for near-duplicate detection services
type DedupService interface {
	// Deduplicate detects near-duplicates in corpus and resolves the drop set
	Deduplicate(ctx context.Context, corpus *Corpus, req *DedupRequest) (*DedupResponse, error)

	// EstimateSimilarity compares two texts with the engine configured by req
	EstimateSimilarity(ctx context.Context, text1, text2 string, req *DedupRequest) (*SimilarityEstimate, error)
}

// DedupOutputFormatter defines the interface for formatting dedup reports
type DedupOutputFormatter interface {
	// FormatDedupResponse formats a response according to the specified format
	FormatDedupResponse(response *DedupResponse, format OutputFormat, writer io.Writer) error
}

// DedupConfigurationLoader defines the interface for loading dedup configuration
type DedupConfigurationLoader interface {
	// LoadConfig loads configuration from file; an empty path triggers discovery
	LoadConfig(path string) (*DedupRequest, error)

	// LoadDefaultConfig returns the default configuration
	LoadDefaultConfig() *DedupRequest

	// MergeConfig overlays override (command line) onto base (file)
	MergeConfig(base *DedupRequest, override *DedupRequest) *DedupRequest
}
