package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupRequest_ValidateParameters(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*DedupRequest)
		wantErr string
	}{
		{name: "defaults", modify: func(*DedupRequest) {}},
		{
			name:    "zero hashes",
			modify:  func(r *DedupRequest) { r.NumHashes = 0 },
			wantErr: "num_hashes must be > 0",
		},
		{
			name:    "zero bands",
			modify:  func(r *DedupRequest) { r.Bands = 0 },
			wantErr: "bands and rows must be > 0",
		},
		{
			name:    "banding mismatch",
			modify:  func(r *DedupRequest) { r.Bands = 3 },
			wantErr: "bands*rows must equal num_hashes",
		},
		{
			name: "other valid banding",
			modify: func(r *DedupRequest) {
				r.Bands = 20
				r.Rows = 5
			},
		},
		{
			name:    "max hash too small",
			modify:  func(r *DedupRequest) { r.MaxHash = 1 },
			wantErr: "max_hash must be >= 2",
		},
		{
			name:    "shingle size",
			modify:  func(r *DedupRequest) { r.ShingleSize = 0 },
			wantErr: "shingle_size must be >= 1",
		},
		{
			name:    "verify threshold",
			modify:  func(r *DedupRequest) { r.VerifyThreshold = 1.5 },
			wantErr: "verify_threshold",
		},
		{
			name:    "retention",
			modify:  func(r *DedupRequest) { r.Retention = "keep_random" },
			wantErr: "invalid retention",
		},
		{
			name:    "workers",
			modify:  func(r *DedupRequest) { r.Workers = -1 },
			wantErr: "workers must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DefaultDedupRequest()
			tt.modify(req)
			err := req.ValidateParameters()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, IsConfigError(err))
		})
	}
}

func TestDedupRequest_Validate(t *testing.T) {
	t.Run("empty paths", func(t *testing.T) {
		req := DefaultDedupRequest()
		req.Paths = nil
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, HasErrorCode(err, ErrCodeInvalidInput))
	})

	t.Run("empty text field for json", func(t *testing.T) {
		req := DefaultDedupRequest()
		req.InputFormat = CorpusFormatJSONL
		req.TextField = ""
		assert.True(t, IsConfigError(req.Validate()))
	})

	t.Run("empty text field for plain text", func(t *testing.T) {
		req := DefaultDedupRequest()
		req.InputFormat = CorpusFormatText
		req.TextField = ""
		assert.NoError(t, req.Validate())
	})

	t.Run("unknown report format", func(t *testing.T) {
		req := DefaultDedupRequest()
		req.ReportFormat = "html"
		assert.True(t, IsConfigError(req.Validate()))
	})

	t.Run("record format only checked with output", func(t *testing.T) {
		req := DefaultDedupRequest()
		req.RecordFormat = CorpusFormatText
		assert.NoError(t, req.Validate())

		req.OutputPath = "out.txt"
		assert.True(t, IsConfigError(req.Validate()))
	})
}

func TestParseCorpusFormat(t *testing.T) {
	tests := map[string]CorpusFormat{
		"":       CorpusFormatAuto,
		"auto":   CorpusFormatAuto,
		"jsonl":  CorpusFormatJSONL,
		"ndjson": CorpusFormatJSONL,
		"json":   CorpusFormatJSON,
		"text":   CorpusFormatText,
		"txt":    CorpusFormatText,
	}
	for in, want := range tests {
		got, err := ParseCorpusFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCorpusFormat("parquet")
	assert.True(t, HasErrorCode(err, ErrCodeUnsupportedFormat))
}

func TestParseRetentionMode(t *testing.T) {
	for _, mode := range []RetentionMode{RetentionKeepFirst, RetentionKeepLongest, RetentionUnion} {
		got, err := ParseRetentionMode(string(mode))
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}

	_, err := ParseRetentionMode("keep_random")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "union")
}

func TestCorpusTexts(t *testing.T) {
	c := &Corpus{Records: []*Record{{Ordinal: 0, Text: "a"}, {Ordinal: 1, Text: "b"}}}
	assert.Equal(t, []string{"a", "b"}, c.Texts())
}

func TestDuplicateGroupSize(t *testing.T) {
	g := &DuplicateGroup{Kept: 0, Dropped: []int{2, 5}}
	assert.Equal(t, 3, g.Size())
}

func TestHasErrorCode(t *testing.T) {
	cause := NewInvariantError("signature length mismatch")
	wrapped := NewConfigError("bad run", cause)

	assert.True(t, IsConfigError(wrapped))
	assert.True(t, IsInvariantError(wrapped))
	assert.True(t, IsConfigError(fmt.Errorf("context: %w", wrapped)))
	assert.False(t, IsConfigError(errors.New("plain")))
	assert.False(t, HasErrorCode(nil, ErrCodeConfigError))
}
