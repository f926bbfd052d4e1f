package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ludo-technologies/neardup/domain"
)

// FileOutputWriter writes reports to files or to a provided writer.
type FileOutputWriter struct {
	fs     afero.Fs
	status io.Writer // where to print status messages (typically stderr)
}

// NewFileOutputWriter creates a new FileOutputWriter on the OS filesystem.
func NewFileOutputWriter(status io.Writer) *FileOutputWriter {
	return NewFileOutputWriterFs(afero.NewOsFs(), status)
}

// NewFileOutputWriterFs creates a FileOutputWriter on fs.
func NewFileOutputWriterFs(fs afero.Fs, status io.Writer) *FileOutputWriter {
	if status == nil {
		status = os.Stderr
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileOutputWriter{fs: fs, status: status}
}

// Write implements domain.ReportWriter.
func (w *FileOutputWriter) Write(writer io.Writer, outputPath string, format domain.OutputFormat, writeFunc func(io.Writer) error) error {
	if outputPath == "" {
		if writer == nil {
			return domain.NewOutputError("no report destination", nil)
		}
		if err := writeFunc(writer); err != nil {
			return domain.NewOutputError("failed to write output", err)
		}
		return nil
	}

	file, err := w.fs.Create(outputPath)
	if err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to create output file: %s", outputPath), err)
	}
	defer file.Close()

	if err := writeFunc(file); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		absPath = outputPath
	}
	fmt.Fprintf(w.status, "%s report generated: %s\n", strings.ToUpper(string(format)), absPath)
	return nil
}
