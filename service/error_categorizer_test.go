package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/neardup/domain"
)

func TestNewErrorCategorizer(t *testing.T) {
	categorizer := NewErrorCategorizer()
	assert.NotNil(t, categorizer)
	assert.IsType(t, &ErrorCategorizerImpl{}, categorizer)
}

func TestCategorize_DomainCodes(t *testing.T) {
	categorizer := NewErrorCategorizer()

	tests := []struct {
		name string
		err  error
		want domain.ErrorCategory
	}{
		{"config", domain.NewConfigError("bad bands", nil), domain.ErrorCategoryConfig},
		{"invariant", domain.NewInvariantError("signature length 3 != 4"), domain.ErrorCategoryInvariant},
		{"file not found", domain.NewFileNotFoundError("x.jsonl", nil), domain.ErrorCategoryInput},
		{"invalid input", domain.NewValidationError("paths cannot be empty"), domain.ErrorCategoryInput},
		{"parse", domain.NewParseError("x.jsonl", errors.New("boom")), domain.ErrorCategoryProcessing},
		{"output", domain.NewOutputError("disk full", nil), domain.ErrorCategoryOutput},
		{"unsupported", domain.NewUnsupportedFormatError("xml"), domain.ErrorCategoryOutput},
		{"wrapped config", fmt.Errorf("failed to load configuration: %w", domain.NewConfigError("x", nil)), domain.ErrorCategoryConfig},
		{"config wrapping invariant", domain.NewConfigError("outer", domain.NewInvariantError("inner")), domain.ErrorCategoryInvariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := categorizer.Categorize(tt.err)
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Category)
			assert.Equal(t, tt.err, result.Original)
			assert.NotEmpty(t, result.Message)
		})
	}
}

func TestCategorize_Context(t *testing.T) {
	categorizer := NewErrorCategorizer()

	for _, err := range []error{
		context.Canceled,
		fmt.Errorf("duplicate detection failed: %w", context.DeadlineExceeded),
	} {
		assert.Equal(t, domain.ErrorCategoryTimeout, categorizer.Categorize(err).Category)
	}
}

func TestCategorize_Patterns(t *testing.T) {
	categorizer := NewErrorCategorizer()

	tests := []struct {
		msg  string
		want domain.ErrorCategory
	}{
		{"operation timed out", domain.ErrorCategoryTimeout},
		{"bands*rows must equal num_hashes", domain.ErrorCategoryConfig},
		{"open corpus.jsonl: no such file or directory", domain.ErrorCategoryInput},
		{"bufio.Scanner: token too long", domain.ErrorCategoryProcessing},
		{"cannot create report", domain.ErrorCategoryOutput},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizer.Categorize(errors.New(tt.msg)).Category)
		})
	}
}

func TestCategorize_Unknown(t *testing.T) {
	categorizer := NewErrorCategorizer()

	result := categorizer.Categorize(errors.New("something odd"))
	assert.Equal(t, domain.ErrorCategoryUnknown, result.Category)
	assert.Equal(t, "something odd", result.Message)

	assert.Nil(t, categorizer.Categorize(nil))
}

func TestGetRecoverySuggestions(t *testing.T) {
	categorizer := NewErrorCategorizer()

	for _, category := range []domain.ErrorCategory{
		domain.ErrorCategoryInput,
		domain.ErrorCategoryConfig,
		domain.ErrorCategoryInvariant,
		domain.ErrorCategoryTimeout,
		domain.ErrorCategoryOutput,
		domain.ErrorCategoryProcessing,
		domain.ErrorCategoryUnknown,
	} {
		assert.NotEmpty(t, categorizer.GetRecoverySuggestions(category), category)
	}
	assert.Equal(t, []string{"Check the error message for more details"},
		categorizer.GetRecoverySuggestions(domain.ErrorCategory("other")))
}
