package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ludo-technologies/neardup/domain"
)

// DedupUseCase orchestrates a deduplication run: configuration, corpus
// loading, detection, record output and reporting.
type DedupUseCase struct {
	service      domain.DedupService
	reader       domain.CorpusReader
	recordWriter domain.RecordWriter
	formatter    domain.DedupOutputFormatter
	configLoader domain.DedupConfigurationLoader
	reportWriter domain.ReportWriter
	logger       *zap.Logger
}

// NewDedupUseCase creates a new dedup use case with the given dependencies
func NewDedupUseCase(
	service domain.DedupService,
	reader domain.CorpusReader,
	recordWriter domain.RecordWriter,
	formatter domain.DedupOutputFormatter,
	configLoader domain.DedupConfigurationLoader,
	reportWriter domain.ReportWriter,
	logger *zap.Logger,
) *DedupUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DedupUseCase{
		service:      service,
		reader:       reader,
		recordWriter: recordWriter,
		formatter:    formatter,
		configLoader: configLoader,
		reportWriter: reportWriter,
		logger:       logger,
	}
}

// Execute runs deduplication for req and returns the response. Kept
// records are written when req.OutputPath is set; the report goes to
// req.ReportPath or req.ReportWriter.
func (uc *DedupUseCase) Execute(ctx context.Context, req domain.DedupRequest) (*domain.DedupResponse, error) {
	finalReq, err := uc.loadAndMergeConfig(req)
	if err != nil {
		return nil, err
	}

	if err := finalReq.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	corpus, err := uc.reader.ReadCorpus(ctx, &finalReq)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	if len(corpus.Records) == 0 {
		uc.logger.Warn("corpus is empty", zap.Strings("paths", finalReq.Paths))
	}

	response, err := uc.service.Deduplicate(ctx, corpus, &finalReq)
	if err != nil {
		return nil, err
	}

	if finalReq.OutputPath != "" {
		if err := uc.recordWriter.WriteRecords(response.Kept, finalReq.RecordFormat, finalReq.OutputPath); err != nil {
			return response, fmt.Errorf("failed to write deduplicated records: %w", err)
		}
		uc.logger.Debug("wrote deduplicated records",
			zap.String("path", finalReq.OutputPath),
			zap.Int("records", len(response.Kept)))
	}

	if finalReq.HasValidReportWriter() {
		err := uc.reportWriter.Write(finalReq.ReportWriter, finalReq.ReportPath, finalReq.ReportFormat, func(w io.Writer) error {
			return uc.formatter.FormatDedupResponse(response, finalReq.ReportFormat, w)
		})
		if err != nil {
			return response, fmt.Errorf("failed to write report: %w", err)
		}
	}

	return response, nil
}

// EstimateSimilarity compares two texts using the parameters of req after
// configuration has been applied.
func (uc *DedupUseCase) EstimateSimilarity(ctx context.Context, text1, text2 string, req domain.DedupRequest) (*domain.SimilarityEstimate, error) {
	finalReq, err := uc.loadAndMergeConfig(req)
	if err != nil {
		return nil, err
	}
	estimate, err := uc.service.EstimateSimilarity(ctx, text1, text2, &finalReq)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate similarity: %w", err)
	}
	return estimate, nil
}

// loadAndMergeConfig loads configuration (explicit path or discovery) and
// lets req override it.
func (uc *DedupUseCase) loadAndMergeConfig(req domain.DedupRequest) (domain.DedupRequest, error) {
	if uc.configLoader == nil {
		return req, nil
	}

	configReq, err := uc.configLoader.LoadConfig(req.ConfigPath)
	if err != nil {
		return req, err
	}
	if configReq == nil {
		return req, nil
	}

	merged := uc.configLoader.MergeConfig(configReq, &req)
	return *merged, nil
}

// DedupUseCaseBuilder provides a builder pattern for creating DedupUseCase
type DedupUseCaseBuilder struct {
	service      domain.DedupService
	reader       domain.CorpusReader
	recordWriter domain.RecordWriter
	formatter    domain.DedupOutputFormatter
	configLoader domain.DedupConfigurationLoader
	reportWriter domain.ReportWriter
	logger       *zap.Logger
}

// NewDedupUseCaseBuilder creates a new builder
func NewDedupUseCaseBuilder() *DedupUseCaseBuilder {
	return &DedupUseCaseBuilder{}
}

// WithService sets the dedup service
func (b *DedupUseCaseBuilder) WithService(service domain.DedupService) *DedupUseCaseBuilder {
	b.service = service
	return b
}

// WithCorpusReader sets the corpus reader
func (b *DedupUseCaseBuilder) WithCorpusReader(reader domain.CorpusReader) *DedupUseCaseBuilder {
	b.reader = reader
	return b
}

// WithRecordWriter sets the writer for deduplicated records
func (b *DedupUseCaseBuilder) WithRecordWriter(writer domain.RecordWriter) *DedupUseCaseBuilder {
	b.recordWriter = writer
	return b
}

// WithFormatter sets the report formatter
func (b *DedupUseCaseBuilder) WithFormatter(formatter domain.DedupOutputFormatter) *DedupUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithConfigLoader sets the configuration loader
func (b *DedupUseCaseBuilder) WithConfigLoader(loader domain.DedupConfigurationLoader) *DedupUseCaseBuilder {
	b.configLoader = loader
	return b
}

// WithReportWriter sets the report writer
func (b *DedupUseCaseBuilder) WithReportWriter(writer domain.ReportWriter) *DedupUseCaseBuilder {
	b.reportWriter = writer
	return b
}

// WithLogger sets the logger
func (b *DedupUseCaseBuilder) WithLogger(logger *zap.Logger) *DedupUseCaseBuilder {
	b.logger = logger
	return b
}

// Build creates the DedupUseCase. The config loader and logger are optional.
func (b *DedupUseCaseBuilder) Build() (*DedupUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("dedup service is required")
	}
	if b.reader == nil {
		return nil, fmt.Errorf("corpus reader is required")
	}
	if b.recordWriter == nil {
		return nil, fmt.Errorf("record writer is required")
	}
	if b.formatter == nil {
		return nil, fmt.Errorf("output formatter is required")
	}
	if b.reportWriter == nil {
		return nil, fmt.Errorf("report writer is required")
	}

	return NewDedupUseCase(
		b.service,
		b.reader,
		b.recordWriter,
		b.formatter,
		b.configLoader,
		b.reportWriter,
		b.logger,
	), nil
}
