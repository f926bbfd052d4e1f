package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/neardup/domain"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 100, config.Dedup.NumHashes)
	assert.Equal(t, 10, config.Dedup.Bands)
	assert.Equal(t, 10, config.Dedup.Rows)
	assert.Equal(t, uint64(1<<32-1), config.Dedup.MaxHash)
	assert.Nil(t, config.Dedup.Seed)
	assert.Equal(t, "keep_first", config.Dedup.Retention)
	assert.Equal(t, "text", config.Input.TextField)
	assert.Equal(t, "random", config.Dedup.SeedString())
	require.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bands times rows mismatch", func(c *Config) { c.Dedup.Bands = 20 }},
		{"zero hashes", func(c *Config) { c.Dedup.NumHashes = 0 }},
		{"zero rows", func(c *Config) { c.Dedup.Rows = 0 }},
		{"max hash too small", func(c *Config) { c.Dedup.MaxHash = 1 }},
		{"zero shingle size", func(c *Config) { c.Dedup.ShingleSize = 0 }},
		{"verify threshold above one", func(c *Config) { c.Dedup.VerifyThreshold = 1.5 }},
		{"unknown retention", func(c *Config) { c.Dedup.Retention = "keep_best" }},
		{"negative workers", func(c *Config) { c.Dedup.Workers = -1 }},
		{"unknown input format", func(c *Config) { c.Input.Format = "xml" }},
		{"empty text field", func(c *Config) { c.Input.TextField = " " }},
		{"no include patterns", func(c *Config) { c.Input.IncludePatterns = nil }},
		{"text record output", func(c *Config) { c.Output.Format = "text" }},
		{"unknown report format", func(c *Config) { c.Output.ReportFormat = "html" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.True(t, domain.IsConfigError(err), "expected config error, got %v", err)
		})
	}
}

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neardup.yaml")
	content := `dedup:
  num_hashes: 20
  bands: 5
  rows: 4
  seed: 42
  retention: keep_longest
input:
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 20, config.Dedup.NumHashes)
	assert.Equal(t, 5, config.Dedup.Bands)
	assert.Equal(t, 4, config.Dedup.Rows)
	require.NotNil(t, config.Dedup.Seed)
	assert.Equal(t, int64(42), *config.Dedup.Seed)
	assert.Equal(t, "keep_longest", config.Dedup.Retention)
	assert.Equal(t, "text", config.Input.Format)
	// Untouched keys keep their defaults
	assert.Equal(t, 2, config.Dedup.ShingleSize)
}

func TestLoadConfig_InvalidFileFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neardup.toml")
	require.NoError(t, os.WriteFile(path, []byte("[dedup]\nnum_hashes = 100\nbands = 7\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NEARDUP_DEDUP_NUM_HASHES", "128")
	t.Setenv("NEARDUP_DEDUP_BANDS", "32")
	t.Setenv("NEARDUP_DEDUP_ROWS", "4")
	t.Setenv("NEARDUP_DEDUP_SEED", "7")
	t.Setenv("NEARDUP_DEDUP_NORMALIZE", "true")
	t.Setenv("NEARDUP_INPUT_TEXT_FIELD", "body.content")

	config := DefaultConfig()
	require.NoError(t, ApplyEnvOverrides(config))

	assert.Equal(t, 128, config.Dedup.NumHashes)
	assert.Equal(t, 32, config.Dedup.Bands)
	assert.Equal(t, 4, config.Dedup.Rows)
	require.NotNil(t, config.Dedup.Seed)
	assert.Equal(t, int64(7), *config.Dedup.Seed)
	assert.Equal(t, "7", config.Dedup.SeedString())
	assert.True(t, config.Dedup.Normalize)
	assert.Equal(t, "body.content", config.Input.TextField)
	assert.NoError(t, config.Validate())

	assert.Error(t, ApplyEnvOverrides(nil))
}
