package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/pagelens/internal/analytics"
	"github.com/nao1215/pagelens/internal/model"
)

// JSONWriter writes records as JSON, one document per Write followed by a
// newline. Compact output gives one record per line, which suits piping a
// multi-seed run into jq or a log collector; WithPrettyPrint is meant for
// terminals.
type JSONWriter struct {
	baseWriter

	// indent switches from json.Marshal to json.MarshalIndent.
	indent bool

	// indentPrefix and indentString are passed to json.MarshalIndent.
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter returns a JSONWriter writing compact JSON to output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs rec followed by a newline.
func (w *JSONWriter) Write(rec *model.PageRecord) (int, error) {
	return w.writeJSON(rec)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// Envelope is a record together with information about the run that
// produced it.
type Envelope struct {
	// Version is the pagelens version that wrote the envelope.
	Version string `json:"version"`

	// GeneratedAt is when the envelope was written, in UTC.
	GeneratedAt time.Time `json:"generatedAt"`

	// Pages counts the record and all of its subpages.
	Pages int `json:"pages"`

	// Stats summarizes the word table of the top-level page.
	Stats analytics.Stats `json:"stats"`

	// Record is the extracted page tree.
	Record *model.PageRecord `json:"record"`
}

// NewEnvelope wraps rec. Stats describe the top-level page only.
func NewEnvelope(rec *model.PageRecord, version string, now time.Time) *Envelope {
	return &Envelope{
		Version:     version,
		GeneratedAt: now.UTC(),
		Pages:       rec.PageCount(),
		Stats:       analytics.SummarizeMap(rec.WordFrequency),
		Record:      rec,
	}
}

// EnvelopeWriter writes records wrapped in an Envelope.
type EnvelopeWriter struct {
	*JSONWriter

	// version is copied into every Envelope.
	version string

	// now stamps GeneratedAt; tests pin it.
	now func() time.Time
}

// NewEnvelopeWriter returns an EnvelopeWriter stamping version on every
// envelope.
func NewEnvelopeWriter(output io.Writer, version string, opts ...JSONWriterOption) *EnvelopeWriter {
	return &EnvelopeWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
		now:        time.Now,
	}
}

// Write outputs the envelope for rec.
func (w *EnvelopeWriter) Write(rec *model.PageRecord) (int, error) {
	return w.writeJSON(NewEnvelope(rec, w.version, w.now()))
}
