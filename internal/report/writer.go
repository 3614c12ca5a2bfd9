package report

import (
	"io"

	"github.com/nao1215/pagelens/internal/model"
)

// Writer writes a page record in some output format.
type Writer interface {
	// Write renders rec and returns the number of bytes written.
	Write(rec *model.PageRecord) (int, error)
}

// MultiWriter writes every record to each of its writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter returns a Writer that fans out to writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write stops at the first writer that fails.
func (m *MultiWriter) Write(rec *model.PageRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(rec)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
