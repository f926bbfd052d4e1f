package service

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/neardup/domain"
)

func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func readRequest(paths ...string) *domain.DedupRequest {
	req := domain.DefaultDedupRequest()
	req.Paths = paths
	return req
}

func TestCorpusReader_JSONL(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/a.jsonl": "{\"text\":\"first\",\"id\":1}\n\n{\"text\":\"second\",\"id\":2}\n",
	})
	reader := NewCorpusReader(fs, nil)

	corpus, err := reader.ReadCorpus(context.Background(), readRequest("/data/a.jsonl"))
	require.NoError(t, err)
	require.Len(t, corpus.Records, 2)

	assert.Equal(t, 0, corpus.Records[0].Ordinal)
	assert.Equal(t, "first", corpus.Records[0].Text)
	assert.Equal(t, "/data/a.jsonl:1", corpus.Records[0].Source)
	assert.JSONEq(t, `{"text":"first","id":1}`, string(corpus.Records[0].Raw))

	assert.Equal(t, 1, corpus.Records[1].Ordinal)
	assert.Equal(t, "/data/a.jsonl:3", corpus.Records[1].Source)
	assert.Equal(t, []string{"/data/a.jsonl"}, corpus.Files)
}

func TestCorpusReader_NestedTextField(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/a.jsonl": `{"doc":{"body":"nested text"}}` + "\n",
	})
	req := readRequest("/data/a.jsonl")
	req.TextField = "doc.body"

	corpus, err := NewCorpusReader(fs, nil).ReadCorpus(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, corpus.Records, 1)
	assert.Equal(t, "nested text", corpus.Records[0].Text)
}

func TestCorpusReader_JSONArray(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/a.json": `[{"text":"one"},{"text":"two"}]`,
	})

	corpus, err := NewCorpusReader(fs, nil).ReadCorpus(context.Background(), readRequest("/data/a.json"))
	require.NoError(t, err)
	require.Len(t, corpus.Records, 2)
	assert.Equal(t, "two", corpus.Records[1].Text)
	assert.Equal(t, "/data/a.json[1]", corpus.Records[1].Source)
}

func TestCorpusReader_JSONArrayRejectsObject(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/a.json": `{"text":"one"}`,
	})

	_, err := NewCorpusReader(fs, nil).ReadCorpus(context.Background(), readRequest("/data/a.json"))
	require.Error(t, err)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeParseError))
}

func TestCorpusReader_PlainText(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/lines.txt": "alpha\r\nbeta\n\ngamma",
	})

	corpus, err := NewCorpusReader(fs, nil).ReadCorpus(context.Background(), readRequest("/data/lines.txt"))
	require.NoError(t, err)
	require.Len(t, corpus.Records, 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, corpus.Texts())
	assert.Nil(t, corpus.Records[0].Raw)
}

func TestCorpusReader_MissingField(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/a.jsonl": `{"body":"no text field"}` + "\n",
	})

	_, err := NewCorpusReader(fs, nil).ReadCorpus(context.Background(), readRequest("/data/a.jsonl"))
	require.Error(t, err)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeParseError))
	assert.Contains(t, err.Error(), `field "text" not found`)
}

func TestCorpusReader_InvalidJSONLine(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/a.jsonl": "{\"text\":\"ok\"}\n{broken\n",
	})

	_, err := NewCorpusReader(fs, nil).ReadCorpus(context.Background(), readRequest("/data/a.jsonl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.jsonl:2")
}

func TestCorpusReader_MissingPath(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := NewCorpusReader(fs, nil).ReadCorpus(context.Background(), readRequest("/nope"))
	require.Error(t, err)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeFileNotFound))
}

func TestCorpusReader_OrdinalsSpanFiles(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/b.jsonl": `{"text":"from b"}` + "\n",
		"/data/a.jsonl": `{"text":"from a"}` + "\n",
	})

	corpus, err := NewCorpusReader(fs, nil).ReadCorpus(context.Background(), readRequest("/data"))
	require.NoError(t, err)
	assert.Equal(t, []string{"from a", "from b"}, corpus.Texts())
	assert.Equal(t, 1, corpus.Records[1].Ordinal)
}

func TestCorpusReader_Cancelled(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/a.jsonl": `{"text":"x"}` + "\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCorpusReader(fs, nil).ReadCorpus(ctx, readRequest("/data"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectCorpusFiles(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/corpus/a.jsonl":           "",
		"/corpus/sub/b.json":        "",
		"/corpus/sub/c.txt":         "",
		"/corpus/notes.md":          "",
		"/corpus/.hidden/d.jsonl":   "",
		"/corpus/.e.jsonl":          "",
		"/corpus/skip/f.jsonl":      "",
		"/elsewhere/explicit.other": "",
	})
	reader := NewCorpusReader(fs, nil)

	tests := []struct {
		name    string
		paths   []string
		include []string
		exclude []string
		want    []string
	}{
		{
			name:    "default include patterns",
			paths:   []string{"/corpus"},
			include: domain.DefaultIncludePatterns(),
			want: []string{
				"/corpus/a.jsonl",
				"/corpus/skip/f.jsonl",
				"/corpus/sub/b.json",
				"/corpus/sub/c.txt",
			},
		},
		{
			name:    "exclude directory",
			paths:   []string{"/corpus"},
			include: []string{"**/*.jsonl"},
			exclude: []string{"skip/**"},
			want:    []string{"/corpus/a.jsonl"},
		},
		{
			name:  "explicit file bypasses include",
			paths: []string{"/elsewhere/explicit.other"},
			want:  []string{"/elsewhere/explicit.other"},
		},
		{
			name:    "duplicates removed",
			paths:   []string{"/corpus/a.jsonl", "/corpus/a.jsonl"},
			include: []string{"*.jsonl"},
			want:    []string{"/corpus/a.jsonl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reader.CollectCorpusFiles(tt.paths, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFileFormat(t *testing.T) {
	tests := []struct {
		path      string
		requested domain.CorpusFormat
		want      domain.CorpusFormat
	}{
		{"a.jsonl", domain.CorpusFormatAuto, domain.CorpusFormatJSONL},
		{"a.ndjson", domain.CorpusFormatAuto, domain.CorpusFormatJSONL},
		{"a.JSON", domain.CorpusFormatAuto, domain.CorpusFormatJSON},
		{"a.txt", "", domain.CorpusFormatText},
		{"a.json", domain.CorpusFormatText, domain.CorpusFormatText},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveFileFormat(tt.path, tt.requested))
		})
	}
}
