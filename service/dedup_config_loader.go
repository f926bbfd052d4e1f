package service

import (
	"fmt"
	"time"

	"github.com/ludo-technologies/neardup/domain"
	"github.com/ludo-technologies/neardup/internal/config"
)

// DedupConfigurationLoader implements the domain.DedupConfigurationLoader interface
type DedupConfigurationLoader struct {
	// startDir is where .neardup.toml discovery begins
	startDir string
}

// NewDedupConfigurationLoader creates a loader that discovers .neardup.toml
// from the current directory upwards.
func NewDedupConfigurationLoader() *DedupConfigurationLoader {
	return &DedupConfigurationLoader{startDir: "."}
}

// NewDedupConfigurationLoaderAt creates a loader that starts discovery at dir.
func NewDedupConfigurationLoaderAt(dir string) *DedupConfigurationLoader {
	return &DedupConfigurationLoader{startDir: dir}
}

// LoadConfig loads configuration from path. An empty path searches for
// .neardup.toml and falls back to the defaults. Environment overrides apply
// in both cases.
func (l *DedupConfigurationLoader) LoadConfig(path string) (*domain.DedupRequest, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadConfig(path)
	} else {
		cfg, err = l.discover()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return ConfigToRequest(cfg), nil
}

func (l *DedupConfigurationLoader) discover() (*config.Config, error) {
	cfg, err := config.NewTomlConfigLoader().LoadConfig(l.startDir)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefaultConfig returns the default configuration
func (l *DedupConfigurationLoader) LoadDefaultConfig() *domain.DedupRequest {
	return ConfigToRequest(config.DefaultConfig())
}

// MergeConfig prefers override wherever it carries a non-zero value. Use
// DedupConfigurationLoaderWithFlags when zero values on the command line
// are meaningful.
func (l *DedupConfigurationLoader) MergeConfig(base *domain.DedupRequest, override *domain.DedupRequest) *domain.DedupRequest {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}
	merged := *base
	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}
	if override.ReportWriter != nil {
		merged.ReportWriter = override.ReportWriter
	}
	if override.OutputPath != "" {
		merged.OutputPath = override.OutputPath
	}
	if override.ReportPath != "" {
		merged.ReportPath = override.ReportPath
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}
	return &merged
}

// ConfigToRequest converts a loaded configuration into a dedup request.
// The config is assumed to be validated.
func ConfigToRequest(cfg *config.Config) *domain.DedupRequest {
	d := cfg.Dedup
	req := &domain.DedupRequest{
		Paths:           cfg.Input.Paths,
		IncludePatterns: cfg.Input.IncludePatterns,
		ExcludePatterns: cfg.Input.ExcludePatterns,
		InputFormat:     domain.CorpusFormat(cfg.Input.Format),
		TextField:       cfg.Input.TextField,
		ShingleSize:     d.ShingleSize,
		Normalize:       d.Normalize,
		NumHashes:       d.NumHashes,
		Bands:           d.Bands,
		Rows:            d.Rows,
		MaxHash:         d.MaxHash,
		VerifyThreshold: d.VerifyThreshold,
		Retention:       domain.RetentionMode(d.Retention),
		Workers:         d.Workers,
		Timeout:         time.Duration(d.TimeoutSeconds) * time.Second,
		OutputPath:      cfg.Output.Path,
		RecordFormat:    domain.CorpusFormat(cfg.Output.Format),
		ReportFormat:    domain.OutputFormat(cfg.Output.ReportFormat),
		ReportPath:      cfg.Output.ReportPath,
		ShowGroups:      cfg.Output.ShowGroups,
	}
	if format, err := domain.ParseCorpusFormat(cfg.Input.Format); err == nil {
		req.InputFormat = format
	}
	if d.Seed != nil {
		seed := *d.Seed
		req.Seed = &seed
	}
	if len(req.Paths) == 0 {
		req.Paths = []string{"."}
	}
	return req
}
