package service

import (
	"github.com/ludo-technologies/neardup/domain"
	"github.com/ludo-technologies/neardup/internal/config"
)

// Command line flag names shared by the CLI and the merge logic
const (
	FlagNumHashes       = "num-hashes"
	FlagBands           = "bands"
	FlagRows            = "rows"
	FlagMaxHash         = "max-hash"
	FlagSeed            = "seed"
	FlagShingleSize     = "shingle-size"
	FlagNormalize       = "normalize"
	FlagVerifyThreshold = "verify-threshold"
	FlagRetention       = "retention"
	FlagWorkers         = "workers"
	FlagTimeout         = "timeout"
	FlagInputFormat     = "input-format"
	FlagTextField       = "text-field"
	FlagInclude         = "include"
	FlagExclude         = "exclude"
	FlagOutput          = "output"
	FlagOutputFormat    = "output-format"
	FlagReportFormat    = "report-format"
	FlagReport          = "report"
	FlagShowGroups      = "show-groups"
)

// DedupConfigurationLoaderWithFlags wraps configuration loading with explicit flag tracking
type DedupConfigurationLoaderWithFlags struct {
	*DedupConfigurationLoader
	flagTracker *config.FlagTracker
}

// NewDedupConfigurationLoaderWithFlags creates a loader whose MergeConfig
// only honours the flags recorded in tracker. Discovery of .neardup.toml
// starts at startDir.
func NewDedupConfigurationLoaderWithFlags(tracker *config.FlagTracker, startDir string) *DedupConfigurationLoaderWithFlags {
	if tracker == nil {
		tracker = config.NewFlagTracker()
	}
	if startDir == "" {
		startDir = "."
	}
	return &DedupConfigurationLoaderWithFlags{
		DedupConfigurationLoader: NewDedupConfigurationLoaderAt(startDir),
		flagTracker:              tracker,
	}
}

// MergeConfig merges CLI flags with configuration file, respecting explicit flags
func (cl *DedupConfigurationLoaderWithFlags) MergeConfig(base *domain.DedupRequest, override *domain.DedupRequest) *domain.DedupRequest {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	ft := cl.flagTracker

	// Paths come from arguments, not flags
	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}

	merged.NumHashes = config.Merge(ft, merged.NumHashes, override.NumHashes, FlagNumHashes)
	merged.Bands = config.Merge(ft, merged.Bands, override.Bands, FlagBands)
	merged.Rows = config.Merge(ft, merged.Rows, override.Rows, FlagRows)
	merged.MaxHash = config.Merge(ft, merged.MaxHash, override.MaxHash, FlagMaxHash)
	merged.Seed = config.Merge(ft, merged.Seed, override.Seed, FlagSeed)
	merged.ShingleSize = config.Merge(ft, merged.ShingleSize, override.ShingleSize, FlagShingleSize)
	merged.Normalize = config.Merge(ft, merged.Normalize, override.Normalize, FlagNormalize)
	merged.VerifyThreshold = config.Merge(ft, merged.VerifyThreshold, override.VerifyThreshold, FlagVerifyThreshold)
	merged.Retention = config.Merge(ft, merged.Retention, override.Retention, FlagRetention)
	merged.Workers = config.Merge(ft, merged.Workers, override.Workers, FlagWorkers)
	merged.Timeout = config.Merge(ft, merged.Timeout, override.Timeout, FlagTimeout)

	merged.InputFormat = config.Merge(ft, merged.InputFormat, override.InputFormat, FlagInputFormat)
	merged.TextField = config.Merge(ft, merged.TextField, override.TextField, FlagTextField)
	merged.IncludePatterns = ft.MergeStringSlice(merged.IncludePatterns, override.IncludePatterns, FlagInclude)
	merged.ExcludePatterns = ft.MergeStringSlice(merged.ExcludePatterns, override.ExcludePatterns, FlagExclude)

	merged.OutputPath = config.Merge(ft, merged.OutputPath, override.OutputPath, FlagOutput)
	merged.RecordFormat = config.Merge(ft, merged.RecordFormat, override.RecordFormat, FlagOutputFormat)
	merged.ReportFormat = config.Merge(ft, merged.ReportFormat, override.ReportFormat, FlagReportFormat)
	merged.ReportPath = config.Merge(ft, merged.ReportPath, override.ReportPath, FlagReport)
	merged.ShowGroups = config.Merge(ft, merged.ShowGroups, override.ShowGroups, FlagShowGroups)

	// Runtime-only fields always come from the command
	merged.ReportWriter = override.ReportWriter
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}

	return &merged
}
