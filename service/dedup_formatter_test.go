package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/neardup/domain"
)

func createTestDedupResponse() *domain.DedupResponse {
	seed := int64(7)
	return &domain.DedupResponse{
		RunID: "run-1",
		Groups: []*domain.DuplicateGroup{
			{
				ID:             1,
				Kept:           0,
				KeptSource:     "a.jsonl:1",
				Dropped:        []int{2, 5},
				DroppedSources: []string{"a.jsonl:3", "b.jsonl:1"},
				Similarity:     0.91,
			},
		},
		DropSet: []int{2, 5},
		Statistics: &domain.DedupStatistics{
			FilesRead:       2,
			TotalRecords:    8,
			KeptRecords:     6,
			DroppedRecords:  2,
			DuplicateGroups: 1,
			CandidatePairs:  2,
		},
		Parameters: &domain.DedupParameters{
			NumHashes:   100,
			Bands:       10,
			Rows:        10,
			ShingleSize: 2,
			Seed:        &seed,
			Retention:   domain.RetentionKeepFirst,
			Threshold:   0.794,
		},
		Duration: 12,
		Success:  true,
	}
}

func withoutColor(t *testing.T) {
	t.Helper()
	previous := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = previous })
}

func TestDedupFormatter_Text(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer

	err := NewDedupFormatter().FormatDedupResponse(createTestDedupResponse(), domain.OutputFormatText, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Near-Duplicate Detection Report")
	assert.Contains(t, out, "Dropped: 2 (25.0%)")
	assert.Contains(t, out, "100 hashes (10 bands x 10 rows)")
	assert.Contains(t, out, "Seed: 7")
	assert.Contains(t, out, "Group 1 (3 records, similarity 0.910)")
	assert.Contains(t, out, "keep #0  a.jsonl:1")
	assert.Contains(t, out, "drop #5  b.jsonl:1")
}

func TestDedupFormatter_TextWithoutGroups(t *testing.T) {
	withoutColor(t)
	resp := createTestDedupResponse()
	resp.Request = &domain.DedupRequest{ShowGroups: false}
	var buf bytes.Buffer

	err := NewDedupFormatter().FormatDedupResponse(resp, domain.OutputFormatText, &buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Group 1")
}

func TestDedupFormatter_TextNoDuplicates(t *testing.T) {
	withoutColor(t)
	resp := createTestDedupResponse()
	resp.Groups = nil
	var buf bytes.Buffer

	require.NoError(t, NewDedupFormatter().FormatDedupResponse(resp, domain.OutputFormatText, &buf))
	assert.Contains(t, buf.String(), "No near-duplicates found.")
}

func TestDedupFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDedupFormatter().FormatDedupResponse(createTestDedupResponse(), domain.OutputFormatJSON, &buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, []interface{}{float64(2), float64(5)}, decoded["drop_set"])
}

func TestDedupFormatter_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDedupFormatter().FormatDedupResponse(createTestDedupResponse(), domain.OutputFormatYAML, &buf))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
}

func TestDedupFormatter_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDedupFormatter().FormatDedupResponse(createTestDedupResponse(), domain.OutputFormatCSV, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"group_id", "role", "ordinal", "source", "similarity"}, rows[0])
	assert.Equal(t, []string{"1", "kept", "0", "a.jsonl:1", "0.9100"}, rows[1])
	assert.Equal(t, []string{"1", "dropped", "5", "b.jsonl:1", "0.9100"}, rows[3])
}

func TestDedupFormatter_Errors(t *testing.T) {
	var buf bytes.Buffer
	f := NewDedupFormatter()

	err := f.FormatDedupResponse(nil, domain.OutputFormatJSON, &buf)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeOutputError))

	err = f.FormatDedupResponse(createTestDedupResponse(), domain.OutputFormat("html"), &buf)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeUnsupportedFormat))
}
