package domain

// ============================================================================
// MinHash / LSH Defaults
// ============================================================================

const (
	// DefaultNumHashes is the signature length (number of hash functions).
	DefaultNumHashes = 100

	// DefaultBands is the number of LSH bands a signature is split into.
	DefaultBands = 10

	// DefaultRows is the number of signature rows per band.
	// DefaultBands * DefaultRows must equal DefaultNumHashes.
	DefaultRows = 10

	// DefaultMaxHash bounds every signature value; it doubles as the
	// "no minimum seen" sentinel. 2^32 - 1.
	DefaultMaxHash uint64 = 1<<32 - 1
)

// ============================================================================
// Shingling Defaults
// ============================================================================

const (
	// DefaultShingleSize is the width k of character shingles.
	DefaultShingleSize = 2

	// DefaultNormalize controls Unicode folding + lower-case normalisation
	// before shingling. Off by default so raw text is compared.
	DefaultNormalize = false
)

// ============================================================================
// Resolution Defaults
// ============================================================================

const (
	// DefaultVerifyThreshold disables signature-agreement verification of
	// LSH candidates. Every band collision is then treated as a duplicate.
	DefaultVerifyThreshold = 0.0

	// DefaultRetention keeps the lowest ordinal of every duplicate cluster.
	DefaultRetention = RetentionKeepFirst
)

// ============================================================================
// Corpus Defaults
// ============================================================================

const (
	// DefaultTextField is the gjson path of the field deduplicated on.
	DefaultTextField = "text"

	// DefaultInputFormat detects the corpus format from each file extension.
	DefaultInputFormat = CorpusFormatAuto

	// DefaultRecordFormat is the format of the deduplicated output.
	DefaultRecordFormat = CorpusFormatJSONL
)

// DefaultIncludePatterns returns the glob patterns used when collecting
// corpus files from directories.
func DefaultIncludePatterns() []string {
	return []string{"**/*.jsonl", "**/*.json", "**/*.txt"}
}

// DefaultExcludePatterns returns the glob patterns skipped by default.
func DefaultExcludePatterns() []string {
	return []string{"**/.git/**", "**/node_modules/**"}
}

// ============================================================================
// Performance Defaults
// ============================================================================

const (
	// DefaultWorkers of 0 means one worker per CPU.
	DefaultWorkers = 0

	// DefaultTimeoutSeconds is the default timeout for a deduplication run.
	// 0 means no timeout.
	DefaultTimeoutSeconds = 0
)
