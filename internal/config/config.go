package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/neardup/domain"
)

// EnvPrefix is the prefix of environment overrides, e.g. NEARDUP_DEDUP_BANDS
const EnvPrefix = "NEARDUP"

// Config represents the main configuration structure
type Config struct {
	// Dedup holds the MinHash / LSH parameters
	Dedup DedupConfig `mapstructure:"dedup" yaml:"dedup" toml:"dedup"`

	// Input describes where records come from
	Input InputConfig `mapstructure:"input" yaml:"input" toml:"input"`

	// Output describes where kept records and the report go
	Output OutputConfig `mapstructure:"output" yaml:"output" toml:"output"`
}

// DedupConfig holds the detection parameters
type DedupConfig struct {
	NumHashes int    `mapstructure:"num_hashes" yaml:"num_hashes" toml:"num_hashes"`
	Bands     int    `mapstructure:"bands" yaml:"bands" toml:"bands"`
	Rows      int    `mapstructure:"rows" yaml:"rows" toml:"rows"`
	MaxHash   uint64 `mapstructure:"max_hash" yaml:"max_hash" toml:"max_hash"`

	// Seed makes the hash family reproducible. nil draws a fresh family per run.
	Seed *int64 `mapstructure:"seed" yaml:"seed,omitempty" toml:"seed,omitempty"`

	ShingleSize     int     `mapstructure:"shingle_size" yaml:"shingle_size" toml:"shingle_size"`
	Normalize       bool    `mapstructure:"normalize" yaml:"normalize" toml:"normalize"`
	VerifyThreshold float64 `mapstructure:"verify_threshold" yaml:"verify_threshold" toml:"verify_threshold"`

	// Retention is keep_first, keep_longest or union
	Retention string `mapstructure:"retention" yaml:"retention" toml:"retention"`

	// Workers bounds concurrency; 0 uses every CPU
	Workers        int `mapstructure:"workers" yaml:"workers" toml:"workers"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// InputConfig holds corpus discovery settings
type InputConfig struct {
	Paths           []string `mapstructure:"paths" yaml:"paths" toml:"paths"`
	Format          string   `mapstructure:"format" yaml:"format" toml:"format"`
	TextField       string   `mapstructure:"text_field" yaml:"text_field" toml:"text_field"`
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns" toml:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns" toml:"exclude_patterns"`
}

// OutputConfig holds configuration for record and report output
type OutputConfig struct {
	// Format of the deduplicated records: jsonl or json
	Format string `mapstructure:"format" yaml:"format" toml:"format"`
	Path   string `mapstructure:"path" yaml:"path" toml:"path"`

	// ReportFormat is one of text, json, yaml, csv
	ReportFormat string `mapstructure:"report_format" yaml:"report_format" toml:"report_format"`
	ReportPath   string `mapstructure:"report_path" yaml:"report_path" toml:"report_path"`
	ShowGroups   bool   `mapstructure:"show_groups" yaml:"show_groups" toml:"show_groups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Dedup: DedupConfig{
			NumHashes:       domain.DefaultNumHashes,
			Bands:           domain.DefaultBands,
			Rows:            domain.DefaultRows,
			MaxHash:         domain.DefaultMaxHash,
			ShingleSize:     domain.DefaultShingleSize,
			Normalize:       domain.DefaultNormalize,
			VerifyThreshold: domain.DefaultVerifyThreshold,
			Retention:       string(domain.DefaultRetention),
			Workers:         domain.DefaultWorkers,
			TimeoutSeconds:  domain.DefaultTimeoutSeconds,
		},
		Input: InputConfig{
			Paths:           []string{},
			Format:          string(domain.DefaultInputFormat),
			TextField:       domain.DefaultTextField,
			IncludePatterns: domain.DefaultIncludePatterns(),
			ExcludePatterns: domain.DefaultExcludePatterns(),
		},
		Output: OutputConfig{
			Format:       string(domain.DefaultRecordFormat),
			ReportFormat: string(domain.OutputFormatText),
			ShowGroups:   true,
		},
	}
}

// LoadConfig loads an explicit configuration file (toml, yaml or json,
// picked by extension) on top of the defaults, then applies environment
// overrides. An empty path yields the defaults plus environment.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, domain.NewFileNotFoundError(configPath, err)
			}
			return nil, domain.NewConfigError(fmt.Sprintf("failed to read config file %s", configPath), err)
		}
		if err := v.Unmarshal(config); err != nil {
			return nil, domain.NewConfigError("failed to unmarshal config", err)
		}
	}

	if err := ApplyEnvOverrides(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyEnvOverrides copies NEARDUP_* environment variables onto config.
// Keys mirror the file layout: NEARDUP_DEDUP_NUM_HASHES sets dedup.num_hashes.
func ApplyEnvOverrides(config *Config) error {
	if config == nil {
		return domain.NewConfigError("config cannot be nil", nil)
	}
	v := newViper()

	ints := map[string]*int{
		"dedup.num_hashes":      &config.Dedup.NumHashes,
		"dedup.bands":           &config.Dedup.Bands,
		"dedup.rows":            &config.Dedup.Rows,
		"dedup.shingle_size":    &config.Dedup.ShingleSize,
		"dedup.workers":         &config.Dedup.Workers,
		"dedup.timeout_seconds": &config.Dedup.TimeoutSeconds,
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	strs := map[string]*string{
		"dedup.retention":      &config.Dedup.Retention,
		"input.format":         &config.Input.Format,
		"input.text_field":     &config.Input.TextField,
		"output.format":        &config.Output.Format,
		"output.report_format": &config.Output.ReportFormat,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet("dedup.seed") {
		s := v.GetInt64("dedup.seed")
		config.Dedup.Seed = &s
	}
	if v.IsSet("dedup.max_hash") {
		config.Dedup.MaxHash = v.GetUint64("dedup.max_hash")
	}
	if v.IsSet("dedup.normalize") {
		config.Dedup.Normalize = v.GetBool("dedup.normalize")
	}
	if v.IsSet("dedup.verify_threshold") {
		config.Dedup.VerifyThreshold = v.GetFloat64("dedup.verify_threshold")
	}
	return nil
}

// Validate validates the configuration values. Every failure is a
// ConfigError and is reported before any record is read.
func (c *Config) Validate() error {
	d := c.Dedup
	if d.NumHashes <= 0 {
		return domain.NewConfigError(fmt.Sprintf("dedup.num_hashes must be > 0, got %d", d.NumHashes), nil)
	}
	if d.Bands <= 0 || d.Rows <= 0 {
		return domain.NewConfigError(fmt.Sprintf("dedup.bands and dedup.rows must be > 0, got %d and %d", d.Bands, d.Rows), nil)
	}
	if d.Bands*d.Rows != d.NumHashes {
		return domain.NewConfigError(fmt.Sprintf("dedup.bands * dedup.rows (%d * %d) must equal dedup.num_hashes (%d)",
			d.Bands, d.Rows, d.NumHashes), nil)
	}
	if d.MaxHash < 2 {
		return domain.NewConfigError(fmt.Sprintf("dedup.max_hash must be >= 2, got %d", d.MaxHash), nil)
	}
	if d.ShingleSize <= 0 {
		return domain.NewConfigError(fmt.Sprintf("dedup.shingle_size must be > 0, got %d", d.ShingleSize), nil)
	}
	if d.VerifyThreshold < 0 || d.VerifyThreshold > 1 {
		return domain.NewConfigError(fmt.Sprintf("dedup.verify_threshold must be between 0.0 and 1.0, got %f", d.VerifyThreshold), nil)
	}
	if _, err := domain.ParseRetentionMode(d.Retention); err != nil {
		return err
	}
	if d.Workers < 0 {
		return domain.NewConfigError(fmt.Sprintf("dedup.workers must be >= 0, got %d", d.Workers), nil)
	}
	if d.TimeoutSeconds < 0 {
		return domain.NewConfigError(fmt.Sprintf("dedup.timeout_seconds must be >= 0, got %d", d.TimeoutSeconds), nil)
	}

	if _, err := domain.ParseCorpusFormat(c.Input.Format); err != nil {
		return domain.NewConfigError("invalid input.format", err)
	}
	if strings.TrimSpace(c.Input.TextField) == "" {
		return domain.NewConfigError("input.text_field cannot be empty", nil)
	}
	if len(c.Input.IncludePatterns) == 0 {
		return domain.NewConfigError("input.include_patterns cannot be empty", nil)
	}

	switch domain.CorpusFormat(c.Output.Format) {
	case domain.CorpusFormatJSONL, domain.CorpusFormatJSON:
	default:
		return domain.NewConfigError(fmt.Sprintf("invalid output.format '%s', must be one of: jsonl, json", c.Output.Format), nil)
	}
	if _, err := domain.ParseOutputFormat(c.Output.ReportFormat); err != nil {
		return domain.NewConfigError("invalid output.report_format", err)
	}
	return nil
}

// SeedString renders the seed for display, "random" when unset.
func (d DedupConfig) SeedString() string {
	if d.Seed == nil {
		return "random"
	}
	return fmt.Sprintf("%d", *d.Seed)
}
