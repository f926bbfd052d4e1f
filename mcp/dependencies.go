package mcp

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ludo-technologies/neardup/app"
	"github.com/ludo-technologies/neardup/internal/config"
	"github.com/ludo-technologies/neardup/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	fs         afero.Fs
	configPath string
	logger     *zap.Logger
}

// NewDependencies constructs the dependency set. configPath may be empty to
// trigger .neardup.toml discovery from the requested path.
func NewDependencies(configPath string, logger *zap.Logger) *Dependencies {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dependencies{
		fs:         afero.NewOsFs(),
		configPath: configPath,
		logger:     logger,
	}
}

// ConfigPath returns the configured config file path (may be empty to trigger discovery).
func (d *Dependencies) ConfigPath() string {
	return d.configPath
}

// Logger returns the server logger.
func (d *Dependencies) Logger() *zap.Logger {
	return d.logger
}

// BuildDedupUseCase assembles a fresh DedupUseCase. Only the arguments
// recorded in tracker override configuration; discovery starts at startDir.
func (d *Dependencies) BuildDedupUseCase(tracker *config.FlagTracker, startDir string) (*app.DedupUseCase, error) {
	return app.NewDedupUseCaseBuilder().
		WithService(service.NewDedupService(nil, d.logger)).
		WithCorpusReader(service.NewCorpusReader(d.fs, d.logger)).
		WithRecordWriter(service.NewRecordWriter(d.fs)).
		WithFormatter(service.NewDedupFormatter()).
		WithConfigLoader(service.NewDedupConfigurationLoaderWithFlags(tracker, startDir)).
		WithReportWriter(service.NewFileOutputWriterFs(d.fs, nil)).
		WithLogger(d.logger).
		Build()
}

// pathExists reports whether path exists on the dependency filesystem.
func (d *Dependencies) pathExists(path string) bool {
	_, err := d.fs.Stat(path)
	return err == nil
}
