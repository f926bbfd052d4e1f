package service

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/ludo-technologies/neardup/domain"
)

// RecordWriterImpl implements domain.RecordWriter over an afero filesystem
type RecordWriterImpl struct {
	fs afero.Fs
}

// NewRecordWriter creates a record writer. A nil fs writes to the OS filesystem.
func NewRecordWriter(fs afero.Fs) *RecordWriterImpl {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &RecordWriterImpl{fs: fs}
}

// WriteRecords writes records to path in the given order. Structured
// records are written back byte-for-byte; plain-text records become
// {"text": ...} objects.
func (w *RecordWriterImpl) WriteRecords(records []*domain.Record, format domain.CorpusFormat, path string) error {
	f, err := w.fs.Create(path)
	if err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to create output file: %s", path), err)
	}

	if err := EncodeRecords(f, records, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to close output file: %s", path), err)
	}
	return nil
}

// EncodeRecords streams records to out as JSONL or as a JSON array.
func EncodeRecords(out io.Writer, records []*domain.Record, format domain.CorpusFormat) error {
	bw := bufio.NewWriter(out)

	switch format {
	case domain.CorpusFormatJSONL, domain.CorpusFormatAuto, "":
		for _, r := range records {
			raw, err := recordBytes(r)
			if err != nil {
				return err
			}
			bw.Write(raw)
			bw.WriteByte('\n')
		}
	case domain.CorpusFormatJSON:
		bw.WriteString("[")
		for i, r := range records {
			raw, err := recordBytes(r)
			if err != nil {
				return err
			}
			if i > 0 {
				bw.WriteString(",")
			}
			bw.WriteString("\n  ")
			bw.Write(raw)
		}
		if len(records) > 0 {
			bw.WriteString("\n")
		}
		bw.WriteString("]\n")
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}

	if err := bw.Flush(); err != nil {
		return domain.NewOutputError("failed to write records", err)
	}
	return nil
}

func recordBytes(r *domain.Record) ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	raw, err := json.Marshal(map[string]string{domain.DefaultTextField: r.Text})
	if err != nil {
		return nil, domain.NewOutputError("failed to encode record", err)
	}
	return raw, nil
}
