package service

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/neardup/domain"
)

func testRecords() []*domain.Record {
	return []*domain.Record{
		{Ordinal: 0, Text: "kept one", Raw: []byte(`{"text":"kept one","id":7}`)},
		{Ordinal: 2, Text: "plain line"},
	}
}

func TestEncodeRecords_JSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, testRecords(), domain.CorpusFormatJSONL))

	assert.Equal(t, "{\"text\":\"kept one\",\"id\":7}\n{\"text\":\"plain line\"}\n", buf.String())
}

func TestEncodeRecords_JSONArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, testRecords(), domain.CorpusFormatJSON))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, float64(7), decoded[0]["id"])
	assert.Equal(t, "plain line", decoded[1]["text"])
}

func TestEncodeRecords_EmptyArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, nil, domain.CorpusFormatJSON))
	assert.Equal(t, "[]\n", buf.String())
}

func TestEncodeRecords_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeRecords(&buf, testRecords(), domain.CorpusFormatText)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeUnsupportedFormat))
}

func TestRecordWriter_WriteRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	writer := NewRecordWriter(fs)

	require.NoError(t, writer.WriteRecords(testRecords(), domain.CorpusFormatJSONL, "/out/kept.jsonl"))

	data, err := afero.ReadFile(fs, "/out/kept.jsonl")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":7`)
}
