package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/ludo-technologies/neardup/domain"
)

// ConfigFileName is the dedicated project configuration file
const ConfigFileName = ".neardup.toml"

// NeardupTomlConfig represents the structure of .neardup.toml. Pointers
// distinguish "unset" from an explicit zero value.
type NeardupTomlConfig struct {
	Dedup  TomlDedupConfig  `toml:"dedup"`
	Input  TomlInputConfig  `toml:"input"`
	Output TomlOutputConfig `toml:"output"`
}

type TomlDedupConfig struct {
	NumHashes       *int     `toml:"num_hashes"`
	Bands           *int     `toml:"bands"`
	Rows            *int     `toml:"rows"`
	MaxHash         *uint64  `toml:"max_hash"`
	Seed            *int64   `toml:"seed"`
	ShingleSize     *int     `toml:"shingle_size"`
	Normalize       *bool    `toml:"normalize"`
	VerifyThreshold *float64 `toml:"verify_threshold"`
	Retention       string   `toml:"retention"`
	Workers         *int     `toml:"workers"`
	TimeoutSeconds  *int     `toml:"timeout_seconds"`
}

type TomlInputConfig struct {
	Paths           []string `toml:"paths"`
	Format          string   `toml:"format"`
	TextField       string   `toml:"text_field"`
	IncludePatterns []string `toml:"include_patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
}

type TomlOutputConfig struct {
	Format       string `toml:"format"`
	Path         string `toml:"path"`
	ReportFormat string `toml:"report_format"`
	ReportPath   string `toml:"report_path"`
	ShowGroups   *bool  `toml:"show_groups"`
}

// TomlConfigLoader discovers and loads .neardup.toml
type TomlConfigLoader struct{}

// NewTomlConfigLoader creates a new TOML configuration loader
func NewTomlConfigLoader() *TomlConfigLoader {
	return &TomlConfigLoader{}
}

// LoadConfig walks up from startDir looking for .neardup.toml and merges it
// over the defaults. No file found means defaults.
func (l *TomlConfigLoader) LoadConfig(startDir string) (*Config, error) {
	configPath, err := l.FindConfigFile(startDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return l.LoadFile(configPath)
}

// LoadFile parses a single TOML file over the defaults.
func (l *TomlConfigLoader) LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewFileNotFoundError(configPath, err)
		}
		return nil, domain.NewConfigError("failed to read "+configPath, err)
	}

	var parsed NeardupTomlConfig
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, domain.NewConfigError("failed to parse "+configPath, err)
	}

	config := DefaultConfig()
	mergeTomlConfig(config, &parsed)
	return config, nil
}

// FindConfigFile walks up the directory tree to find .neardup.toml
func (l *TomlConfigLoader) FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func mergeTomlConfig(dst *Config, src *NeardupTomlConfig) {
	d := src.Dedup
	setInt(&dst.Dedup.NumHashes, d.NumHashes)
	setInt(&dst.Dedup.Bands, d.Bands)
	setInt(&dst.Dedup.Rows, d.Rows)
	setInt(&dst.Dedup.ShingleSize, d.ShingleSize)
	setInt(&dst.Dedup.Workers, d.Workers)
	setInt(&dst.Dedup.TimeoutSeconds, d.TimeoutSeconds)
	if d.MaxHash != nil {
		dst.Dedup.MaxHash = *d.MaxHash
	}
	if d.Seed != nil {
		seed := *d.Seed
		dst.Dedup.Seed = &seed
	}
	if d.Normalize != nil {
		dst.Dedup.Normalize = *d.Normalize
	}
	if d.VerifyThreshold != nil {
		dst.Dedup.VerifyThreshold = *d.VerifyThreshold
	}
	setString(&dst.Dedup.Retention, d.Retention)

	in := src.Input
	if len(in.Paths) > 0 {
		dst.Input.Paths = in.Paths
	}
	setString(&dst.Input.Format, in.Format)
	setString(&dst.Input.TextField, in.TextField)
	if len(in.IncludePatterns) > 0 {
		dst.Input.IncludePatterns = in.IncludePatterns
	}
	if in.ExcludePatterns != nil {
		dst.Input.ExcludePatterns = in.ExcludePatterns
	}

	out := src.Output
	setString(&dst.Output.Format, out.Format)
	setString(&dst.Output.Path, out.Path)
	setString(&dst.Output.ReportFormat, out.ReportFormat)
	setString(&dst.Output.ReportPath, out.ReportPath)
	if out.ShowGroups != nil {
		dst.Output.ShowGroups = *out.ShowGroups
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

const tomlHeader = `# neardup configuration
# Place this file at the root of a corpus directory. Command line flags
# override these values; NEARDUP_<SECTION>_<KEY> environment variables
# override them when loading through --config.
#
# bands * rows must equal num_hashes. The similarity above which two records
# become likely candidates is roughly (1/bands)^(1/rows).

`

// RenderToml encodes config as an annotated .neardup.toml document.
func RenderToml(config *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(tomlHeader)

	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(config); err != nil {
		return nil, domain.NewConfigError("failed to encode configuration", err)
	}
	return buf.Bytes(), nil
}
