package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/neardup/internal/version"
	"github.com/ludo-technologies/neardup/service"
)

// NewRootCmd builds the neardup command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "neardup",
		Short: "Near-duplicate detection for text corpora",
		Long: `neardup finds and removes near-duplicate records in text corpora
using MinHash signatures and Locality-Sensitive Hashing.

Features:
  • Character shingling with optional Unicode normalisation
  • Banded LSH candidate retrieval, sub-quadratic in corpus size
  • JSONL, JSON array and plain-text corpora
  • Deterministic runs with --seed`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewDedupCmd())
	rootCmd.AddCommand(NewEstimateCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// reportError prints err with its category and recovery suggestions
func reportError(w io.Writer, err error) {
	categorizer := service.NewErrorCategorizer()
	categorized := categorizer.Categorize(err)

	red := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(w, "%s %s\n", red.Sprint("Error:"), categorized.Category)
	fmt.Fprintf(w, "  %v\n", err)

	suggestions := categorizer.GetRecoverySuggestions(categorized.Category)
	if len(suggestions) > 0 {
		fmt.Fprintln(w, "\nSuggestions:")
		for _, s := range suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}
