package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ludo-technologies/neardup/domain"
)

// categoryPatterns is checked in order; the first category with a matching
// substring wins.
type categoryPatterns struct {
	category domain.ErrorCategory
	patterns []string
}

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	codes    map[string]domain.ErrorCategory
	patterns []categoryPatterns
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() domain.ErrorCategorizer {
	return &ErrorCategorizerImpl{
		codes: map[string]domain.ErrorCategory{
			domain.ErrCodeConfigError:       domain.ErrorCategoryConfig,
			domain.ErrCodeInvariantError:    domain.ErrorCategoryInvariant,
			domain.ErrCodeFileNotFound:      domain.ErrorCategoryInput,
			domain.ErrCodeInvalidInput:      domain.ErrorCategoryInput,
			domain.ErrCodeParseError:        domain.ErrorCategoryProcessing,
			domain.ErrCodeOutputError:       domain.ErrorCategoryOutput,
			domain.ErrCodeUnsupportedFormat: domain.ErrorCategoryOutput,
		},
		patterns: initializeErrorPatterns(),
	}
}

// codeOrder fixes the precedence of domain error codes when a chain carries
// more than one of them.
var codeOrder = []string{
	domain.ErrCodeInvariantError,
	domain.ErrCodeConfigError,
	domain.ErrCodeFileNotFound,
	domain.ErrCodeInvalidInput,
	domain.ErrCodeParseError,
	domain.ErrCodeUnsupportedFormat,
	domain.ErrCodeOutputError,
}

func initializeErrorPatterns() []categoryPatterns {
	return []categoryPatterns{
		{domain.ErrorCategoryTimeout, []string{
			"timeout",
			"deadline",
			"context canceled",
			"operation timed out",
		}},
		{domain.ErrorCategoryInvariant, []string{
			"signature length",
			"invariant",
		}},
		{domain.ErrorCategoryConfig, []string{
			"config",
			"bands*rows",
			"num_hashes",
			"max_hash",
			"toml",
		}},
		{domain.ErrorCategoryInput, []string{
			"invalid input",
			"no files found",
			"file not found",
			"cannot access",
			"permission denied",
			"no such file",
		}},
		{domain.ErrorCategoryProcessing, []string{
			"parse",
			"invalid json",
			"field",
			"token too long",
		}},
		{domain.ErrorCategoryOutput, []string{
			"write",
			"output",
			"unsupported format",
			"cannot create",
		}},
	}
}

// Categorize determines the category of an error. Domain error codes take
// precedence over message patterns.
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ec.categorized(domain.ErrorCategoryTimeout, err)
	}

	for _, code := range codeOrder {
		if domain.HasErrorCode(err, code) {
			return ec.categorized(ec.codes[code], err)
		}
	}

	errMsg := strings.ToLower(err.Error())
	for _, cp := range ec.patterns {
		if containsAnyPattern(errMsg, cp.patterns) {
			return ec.categorized(cp.category, err)
		}
	}

	return &domain.CategorizedError{
		Category: domain.ErrorCategoryUnknown,
		Message:  err.Error(),
		Original: err,
	}
}

func (ec *ErrorCategorizerImpl) categorized(category domain.ErrorCategory, err error) *domain.CategorizedError {
	return &domain.CategorizedError{
		Category: category,
		Message:  ec.getCategoryMessage(category),
		Original: err,
	}
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that the corpus paths exist and are readable",
			"Check --include/--exclude patterns; hidden files are always skipped",
			"Use absolute paths if relative paths are causing issues",
		},
		domain.ErrorCategoryConfig: {
			"Make sure bands * rows equals num_hashes",
			"Try: neardup init to generate a valid .neardup.toml",
			"Check NEARDUP_* environment variables for stale overrides",
		},
		domain.ErrorCategoryInvariant: {
			"All signatures in one index must come from the same hash family",
			"Report the issue with the command line that produced it",
		},
		domain.ErrorCategoryTimeout: {
			"Increase --timeout or set it to 0 to disable it",
			"Deduplicate smaller shards of the corpus first",
			"Raise --workers on machines with more cores",
		},
		domain.ErrorCategoryOutput: {
			"Check write permissions for the output and report paths",
			"Use --report-format text, json, yaml or csv",
			"Ensure the output directory exists",
		},
		domain.ErrorCategoryProcessing: {
			"Check that every record is valid JSON",
			"Use --text-field to name the field holding the text",
			"Use --input-format text for plain line-per-record corpora",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --verbose for detailed error information",
			"Report the issue if it persists",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:      "Failed to read the corpus",
		domain.ErrorCategoryConfig:     "Configuration file or settings error",
		domain.ErrorCategoryInvariant:  "Internal consistency check failed",
		domain.ErrorCategoryTimeout:    "Deduplication timed out or was cancelled",
		domain.ErrorCategoryOutput:     "Failed to generate or write output",
		domain.ErrorCategoryProcessing: "Failed to parse corpus records",
		domain.ErrorCategoryUnknown:    "An unexpected error occurred",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An error occurred"
}

func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}
