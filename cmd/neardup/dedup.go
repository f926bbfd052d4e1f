package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ludo-technologies/neardup/app"
	"github.com/ludo-technologies/neardup/domain"
	"github.com/ludo-technologies/neardup/internal/config"
	"github.com/ludo-technologies/neardup/internal/logging"
	"github.com/ludo-technologies/neardup/service"
)

// engineFlags holds the MinHash / LSH flags shared by dedup and estimate
type engineFlags struct {
	numHashes   int
	bands       int
	rows        int
	maxHash     uint64
	seed        int64
	shingleSize int
	normalize   bool
}

func (e *engineFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&e.numHashes, service.FlagNumHashes, domain.DefaultNumHashes,
		"Signature length (number of hash functions)")
	fs.IntVarP(&e.bands, service.FlagBands, "b", domain.DefaultBands,
		"Number of LSH bands; bands * rows must equal num-hashes")
	fs.IntVarP(&e.rows, service.FlagRows, "r", domain.DefaultRows,
		"Rows per LSH band")
	fs.Uint64Var(&e.maxHash, service.FlagMaxHash, domain.DefaultMaxHash,
		"Upper bound of signature values")
	fs.Int64Var(&e.seed, service.FlagSeed, 0,
		"Seed for the hash family; omit for a fresh random family")
	fs.IntVarP(&e.shingleSize, service.FlagShingleSize, "k", domain.DefaultShingleSize,
		"Character shingle width")
	fs.BoolVar(&e.normalize, service.FlagNormalize, domain.DefaultNormalize,
		"Fold Unicode, case and whitespace before shingling")

	_ = fs.MarkHidden(service.FlagMaxHash)
}

// apply copies the flag values onto req. Seed is only set when the flag was given.
func (e *engineFlags) apply(fs *pflag.FlagSet, req *domain.DedupRequest) {
	req.NumHashes = e.numHashes
	req.Bands = e.bands
	req.Rows = e.rows
	req.MaxHash = e.maxHash
	req.ShingleSize = e.shingleSize
	req.Normalize = e.normalize
	if fs.Changed(service.FlagSeed) {
		seed := e.seed
		req.Seed = &seed
	}
}

// DedupCommand handles the dedup CLI command
type DedupCommand struct {
	engine engineFlags

	// Input parameters
	configFile      string
	includePatterns []string
	excludePatterns []string
	inputFormat     string
	textField       string

	// Resolution
	verifyThreshold float64
	retention       string

	// Performance
	workers int
	timeout time.Duration

	// Output
	output       string
	outputFormat string
	reportFormat string
	report       string
	showGroups   bool
}

// NewDedupCommand creates a new dedup command
func NewDedupCommand() *DedupCommand {
	return &DedupCommand{}
}

// CreateCobraCommand creates the Cobra command for deduplication
func (c *DedupCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedup [paths...]",
		Short: "Find and remove near-duplicate records",
		Long: `Find near-duplicate records in a corpus and write the survivors.

Every record is shingled into character k-grams, summarised by a MinHash
signature and bucketed with banded LSH. Records sharing at least one band
are treated as duplicates; one representative per cluster is kept.

The similarity above which a pair is likely to collide is roughly
(1/bands)^(1/rows). Raise rows to make matching stricter.

Examples:
  # Report duplicates in every corpus file under data/
  neardup dedup data/

  # Write the deduplicated corpus, reproducibly
  neardup dedup --seed 42 -o clean.jsonl corpus.jsonl

  # Stricter matching on a nested field
  neardup dedup --bands 20 --rows 5 --text-field doc.body corpus.jsonl

  # Machine-readable report
  neardup dedup --report-format json --report report.json corpus.jsonl`,
		RunE: c.runDedup,
	}

	fs := cmd.Flags()
	c.engine.register(fs)

	// Input flags
	fs.StringVarP(&c.configFile, "config", "c", "", "Path to configuration file")
	fs.StringSliceVar(&c.includePatterns, service.FlagInclude, domain.DefaultIncludePatterns(),
		"Glob patterns of corpus files to include when walking directories")
	fs.StringSliceVar(&c.excludePatterns, service.FlagExclude, domain.DefaultExcludePatterns(),
		"Glob patterns of files to exclude")
	fs.StringVar(&c.inputFormat, service.FlagInputFormat, string(domain.DefaultInputFormat),
		"Corpus format: auto, jsonl, json, text")
	fs.StringVarP(&c.textField, service.FlagTextField, "f", domain.DefaultTextField,
		"JSON path of the field to deduplicate on")

	// Resolution flags
	fs.Float64Var(&c.verifyThreshold, service.FlagVerifyThreshold, domain.DefaultVerifyThreshold,
		"Drop candidates whose estimated similarity is below this value (0 disables)")
	fs.StringVar(&c.retention, service.FlagRetention, string(domain.DefaultRetention),
		"Which record of a cluster survives: keep_first, keep_longest, union (drops whole clusters)")

	// Performance flags
	fs.IntVarP(&c.workers, service.FlagWorkers, "j", domain.DefaultWorkers,
		"Parallel workers (0 uses every CPU)")
	fs.DurationVar(&c.timeout, service.FlagTimeout, 0,
		"Abort the run after this long, e.g. 10m (0 disables)")

	// Output flags
	fs.StringVarP(&c.output, service.FlagOutput, "o", "",
		"Write the kept records to this file")
	fs.StringVar(&c.outputFormat, service.FlagOutputFormat, string(domain.DefaultRecordFormat),
		"Format of the kept records: jsonl, json")
	fs.StringVar(&c.reportFormat, service.FlagReportFormat, string(domain.OutputFormatText),
		"Report format: text, json, yaml, csv")
	fs.StringVar(&c.report, service.FlagReport, "",
		"Write the report to this file instead of stdout")
	fs.BoolVar(&c.showGroups, service.FlagShowGroups, true,
		"List every duplicate group in the text report")

	return cmd
}

// runDedup executes the dedup command
func (c *DedupCommand) runDedup(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := logging.Must(verbose)
	defer func() { _ = logger.Sync() }()

	request := c.createDedupRequest(cmd, args)

	tracker := config.NewFlagTrackerFromFlagSet(cmd.Flags())
	startDir := "."
	if len(args) > 0 {
		startDir = args[0]
	}

	progress := service.NewProgressManager()
	progress.SetWriter(cmd.ErrOrStderr())
	defer progress.Close()

	useCase, err := app.NewDedupUseCaseBuilder().
		WithService(service.NewDedupService(progress, logger)).
		WithCorpusReader(service.NewCorpusReader(nil, logger)).
		WithRecordWriter(service.NewRecordWriter(nil)).
		WithFormatter(service.NewDedupFormatter()).
		WithConfigLoader(service.NewDedupConfigurationLoaderWithFlags(tracker, startDir)).
		WithReportWriter(service.NewFileOutputWriter(cmd.ErrOrStderr())).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create dedup use case: %w", err)
	}

	response, err := useCase.Execute(context.Background(), *request)
	if err != nil {
		return err
	}

	if response.Request != nil && response.Request.OutputPath != "" && response.Statistics != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Kept %d of %d records: %s\n",
			response.Statistics.KeptRecords, response.Statistics.TotalRecords, response.Request.OutputPath)
	}
	return nil
}

// createDedupRequest builds the command line half of the request. Values
// of flags the user did not set are replaced by configuration later on.
func (c *DedupCommand) createDedupRequest(cmd *cobra.Command, paths []string) *domain.DedupRequest {
	req := domain.DefaultDedupRequest()
	c.engine.apply(cmd.Flags(), req)

	req.Paths = paths
	req.ConfigPath = c.configFile
	req.IncludePatterns = c.includePatterns
	req.ExcludePatterns = c.excludePatterns
	req.InputFormat = domain.CorpusFormat(c.inputFormat)
	req.TextField = c.textField
	req.VerifyThreshold = c.verifyThreshold
	req.Retention = domain.RetentionMode(c.retention)
	req.Workers = c.workers
	req.Timeout = c.timeout
	req.OutputPath = c.output
	req.RecordFormat = domain.CorpusFormat(c.outputFormat)
	req.ReportFormat = domain.OutputFormat(c.reportFormat)
	req.ReportPath = c.report
	req.ShowGroups = c.showGroups
	if c.report == "" {
		req.ReportWriter = cmd.OutOrStdout()
	}
	return req
}

// NewDedupCmd creates and returns the dedup cobra command
func NewDedupCmd() *cobra.Command {
	return NewDedupCommand().CreateCobraCommand()
}
