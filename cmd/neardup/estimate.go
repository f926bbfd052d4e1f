package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/neardup/app"
	"github.com/ludo-technologies/neardup/domain"
	"github.com/ludo-technologies/neardup/internal/config"
	"github.com/ludo-technologies/neardup/internal/logging"
	"github.com/ludo-technologies/neardup/service"
)

// EstimateCommand compares two texts directly
type EstimateCommand struct {
	engine     engineFlags
	configFile string
	json       bool
	threshold  float64
}

// NewEstimateCommand creates a new estimate command
func NewEstimateCommand() *EstimateCommand {
	return &EstimateCommand{}
}

// CreateCobraCommand creates the cobra command for pairwise estimation
func (e *EstimateCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate TEXT1 TEXT2",
		Short: "Compare two texts with the configured MinHash / LSH parameters",
		Long: `Compare two texts and show their exact shingle Jaccard similarity,
the MinHash estimate, the number of LSH bands they share and the
probability that such a pair becomes a candidate.

Useful for choosing bands and rows before running dedup on a corpus.
With --threshold, also suggests the bands/rows split of num-hashes whose
S-curve threshold lies closest to the target similarity.

Examples:
  neardup estimate "the cat sat" "the cat sat."
  neardup estimate --bands 20 --rows 5 --seed 1 "first text" "second text"
  neardup estimate --threshold 0.8 "first text" "second text"`,
		Args: cobra.ExactArgs(2),
		RunE: e.runEstimate,
	}

	e.engine.register(cmd.Flags())
	cmd.Flags().StringVarP(&e.configFile, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&e.json, "json", false, "Print the estimate as JSON")
	cmd.Flags().Float64Var(&e.threshold, "threshold", 0,
		"Suggest bands and rows for this target similarity (0 < t < 1)")

	return cmd
}

func (e *EstimateCommand) runEstimate(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := logging.Must(verbose)
	defer func() { _ = logger.Sync() }()

	req := domain.DefaultDedupRequest()
	e.engine.apply(cmd.Flags(), req)
	req.ConfigPath = e.configFile
	req.Paths = nil

	tracker := config.NewFlagTrackerFromFlagSet(cmd.Flags())
	useCase := app.NewDedupUseCase(
		service.NewDedupService(nil, logger),
		nil, nil, nil,
		service.NewDedupConfigurationLoaderWithFlags(tracker, "."),
		nil,
		logger,
	)

	estimate, err := useCase.EstimateSimilarity(context.Background(), args[0], args[1], *req)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("threshold") {
		suggestion, err := service.SuggestBanding(estimate.Parameters.NumHashes, e.threshold)
		if err != nil {
			return err
		}
		estimate.Suggestion = suggestion
	}

	out := cmd.OutOrStdout()
	if e.json {
		return service.WriteJSON(out, estimate)
	}
	fmt.Fprintf(out, "Exact Jaccard:         %.4f\n", estimate.Exact)
	fmt.Fprintf(out, "Estimated Jaccard:     %.4f\n", estimate.Estimated)
	fmt.Fprintf(out, "Shared bands:          %d\n", estimate.SharedBands)
	fmt.Fprintf(out, "Candidate probability: %.4f\n", estimate.CandidateProbability)
	fmt.Fprintf(out, "False negative rate:   %.4f\n", estimate.FalseNegativeRate)
	if s := estimate.Suggestion; s != nil {
		fmt.Fprintf(out, "Suggested banding:     bands=%d rows=%d (threshold %.4f, miss rate %.4f at %.2f)\n",
			s.Bands, s.Rows, s.Threshold, s.FalseNegativeRate, s.Target)
	}
	return nil
}

// NewEstimateCmd creates and returns the estimate cobra command
func NewEstimateCmd() *cobra.Command {
	return NewEstimateCommand().CreateCobraCommand()
}
