package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ludo-technologies/neardup/domain"
)

// maxLineSize bounds a single JSONL record or text line
const maxLineSize = 64 * 1024 * 1024

// CorpusReaderImpl implements domain.CorpusReader over an afero filesystem
type CorpusReaderImpl struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewCorpusReader creates a corpus reader. A nil fs reads the OS filesystem.
func NewCorpusReader(fs afero.Fs, logger *zap.Logger) *CorpusReaderImpl {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorpusReaderImpl{fs: fs, logger: logger}
}

// ReadCorpus collects the files matched by req and parses them in path
// order. Records are numbered 0..n-1 across all files.
func (r *CorpusReaderImpl) ReadCorpus(ctx context.Context, req *domain.DedupRequest) (*domain.Corpus, error) {
	files, err := r.CollectCorpusFiles(req.Paths, req.IncludePatterns, req.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	corpus := &domain.Corpus{Records: []*domain.Record{}, Files: files}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		format := resolveFileFormat(file, req.InputFormat)
		before := len(corpus.Records)
		if err := r.readFile(file, format, req.TextField, corpus); err != nil {
			return nil, err
		}
		r.logger.Debug("read corpus file",
			zap.String("path", file),
			zap.String("format", string(format)),
			zap.Int("records", len(corpus.Records)-before))
	}
	return corpus, nil
}

// CollectCorpusFiles expands paths into a sorted, de-duplicated file list.
// Files named explicitly are kept unless excluded; directories are walked
// and filtered through the include patterns.
func (r *CorpusReaderImpl) CollectCorpusFiles(paths, includePatterns, excludePatterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := r.fs.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, domain.NewFileNotFoundError(path, err)
			}
			return nil, domain.NewInvalidInputError(fmt.Sprintf("cannot access path: %s", path), err)
		}

		if !info.IsDir() {
			if !matchesAny(path, filepath.Base(path), excludePatterns) {
				add(path)
			}
			continue
		}

		root := path
		err = afero.Walk(r.fs, root, func(p string, fi os.FileInfo, walkErr error) error {
			if walkErr != nil {
				r.logger.Warn("skipping unreadable path", zap.String("path", p), zap.Error(walkErr))
				return nil
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				rel = p
			}
			rel = filepath.ToSlash(rel)

			if fi.IsDir() {
				if p != root && strings.HasPrefix(fi.Name(), ".") {
					return filepath.SkipDir
				}
				if p != root && matchesAny(rel+"/", fi.Name(), excludePatterns) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(fi.Name(), ".") {
				return nil
			}
			if matchesAny(rel, fi.Name(), excludePatterns) {
				return nil
			}
			if len(includePatterns) == 0 || matchesAny(rel, fi.Name(), includePatterns) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk directory %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// matchesAny reports whether rel or base matches one of the doublestar patterns
func matchesAny(rel, base string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// resolveFileFormat maps auto to a concrete format by file extension.
// Unknown extensions are read as JSONL.
func resolveFileFormat(path string, requested domain.CorpusFormat) domain.CorpusFormat {
	if requested != domain.CorpusFormatAuto && requested != "" {
		return requested
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return domain.CorpusFormatJSON
	case ".txt", ".text":
		return domain.CorpusFormatText
	default:
		return domain.CorpusFormatJSONL
	}
}

func (r *CorpusReaderImpl) readFile(path string, format domain.CorpusFormat, textField string, corpus *domain.Corpus) error {
	switch format {
	case domain.CorpusFormatJSON:
		data, err := afero.ReadFile(r.fs, path)
		if err != nil {
			return domain.NewFileNotFoundError(path, err)
		}
		return parseJSONArray(path, data, textField, corpus)
	case domain.CorpusFormatJSONL, domain.CorpusFormatText:
		f, err := r.fs.Open(path)
		if err != nil {
			return domain.NewFileNotFoundError(path, err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		line := 0
		for scanner.Scan() {
			line++
			raw := bytes.TrimRight(scanner.Bytes(), "\r")
			if len(bytes.TrimSpace(raw)) == 0 {
				continue
			}
			source := fmt.Sprintf("%s:%d", path, line)
			if format == domain.CorpusFormatText {
				appendRecord(corpus, source, string(raw), nil)
				continue
			}
			if err := parseJSONRecord(source, raw, textField, corpus); err != nil {
				return domain.NewParseError(path, err)
			}
		}
		if err := scanner.Err(); err != nil {
			return domain.NewParseError(path, err)
		}
		return nil
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func parseJSONArray(path string, data []byte, textField string, corpus *domain.Corpus) error {
	if !gjson.ValidBytes(data) {
		return domain.NewParseError(path, fmt.Errorf("invalid JSON"))
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return domain.NewParseError(path, fmt.Errorf("expected a JSON array of records"))
	}

	var parseErr error
	index := 0
	root.ForEach(func(_, elem gjson.Result) bool {
		source := fmt.Sprintf("%s[%d]", path, index)
		index++
		if err := parseJSONRecord(source, []byte(elem.Raw), textField, corpus); err != nil {
			parseErr = err
			return false
		}
		return true
	})
	if parseErr != nil {
		return domain.NewParseError(path, parseErr)
	}
	return nil
}

// parseJSONRecord extracts textField from one JSON object. A missing field
// is an error; non-string values are deduplicated on their string form.
func parseJSONRecord(source string, raw []byte, textField string, corpus *domain.Corpus) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%s: invalid JSON", source)
	}
	value := gjson.GetBytes(raw, textField)
	if !value.Exists() {
		return fmt.Errorf("%s: field %q not found", source, textField)
	}
	appendRecord(corpus, source, value.String(), append([]byte(nil), raw...))
	return nil
}

func appendRecord(corpus *domain.Corpus, source, text string, raw []byte) {
	corpus.Records = append(corpus.Records, &domain.Record{
		Ordinal: len(corpus.Records),
		Source:  source,
		Text:    text,
		Raw:     raw,
	})
}
