package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/pagelens/internal/analytics"
	"github.com/nao1215/pagelens/internal/model"
)

var (
	// ErrParse is returned when the input cannot be parsed as HTML at all.
	ErrParse = errors.New("failed to parse HTML")
	// ErrBaseURL is returned when the request URL is not absolute.
	ErrBaseURL = errors.New("request URL must be absolute")
)

// contentNoise is removed from the document in ModeContent.
const contentNoise = "script, style, .noprint, .reference, .error"

// Result is the outcome of one extraction.
type Result struct {
	// Record is the extracted page.
	Record *model.PageRecord
	// Warnings lists the anomalies found, in the order they were found.
	Warnings []model.ExtractionWarning
	// Frequency is the word table behind Record.WordFrequency, keeping
	// first-occurrence order for ranking.
	Frequency *analytics.FrequencyTable
}

// Extractor builds PageRecords from HTML. It is safe for concurrent use.
type Extractor struct {
	mode       Mode
	wordSource WordSource
	logger     *slog.Logger
	steps      []step
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMode sets the extraction mode. The default is ModeContent.
func WithMode(m Mode) Option {
	return func(e *Extractor) {
		e.mode = m
	}
}

// WithWordSource selects the text used for word frequency.
func WithWordSource(s WordSource) Option {
	return func(e *Extractor) {
		e.wordSource = s
	}
}

// WithLogger sets the logger that receives extraction warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New returns an Extractor running the standard steps.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		mode:       ModeContent,
		wordSource: WordSourceBody,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.steps = []step{
		titleStep{},
		metadataStep{},
		linksStep{},
		imagesStep{},
		headingsStep{},
		paragraphsStep{},
		wordFrequencyStep{source: e.wordSource},
	}
	return e
}

// Mode returns the extraction mode.
func (e *Extractor) Mode() Mode { return e.mode }

// StepNames returns the categories in the order they are extracted.
func (e *Extractor) StepNames() []string {
	names := make([]string, len(e.steps))
	for i, s := range e.steps {
		names[i] = s.Name()
	}
	return names
}

// Extract parses data and builds the record for requestURL. The record's
// SourceURL is requestURL exactly as given; relative references are
// resolved against it.
func (e *Extractor) Extract(data []byte, requestURL string) (*Result, error) {
	base, err := url.Parse(requestURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("%w: %q", ErrBaseURL, requestURL)
	}

	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	doc := goquery.NewDocumentFromNode(root)

	if e.mode == ModeContent {
		doc.Find(contentNoise).Remove()
	}

	p := &page{
		doc:       doc,
		base:      base,
		mode:      e.mode,
		frequency: analytics.NewFrequencyTable(),
	}
	rec := model.NewPageRecord(requestURL)
	result := &Result{Record: rec, Frequency: p.frequency}

	for _, s := range e.steps {
		warnings, err := runStep(s, p, rec)
		for i := range warnings {
			warnings[i].URL = requestURL
		}
		if err != nil {
			warnings = append(warnings, model.ExtractionWarning{
				Category: s.Name(),
				URL:      requestURL,
				Detail:   err.Error(),
			})
		}
		for _, w := range warnings {
			e.logger.Warn("extraction warning",
				"category", w.Category,
				"url", w.URL,
				"detail", w.Detail,
			)
		}
		result.Warnings = append(result.Warnings, warnings...)
	}

	return result, nil
}

// runStep runs one step, converting a panic into an error so that the
// other categories are still extracted.
func runStep(s step, p *page, rec *model.PageRecord) (warnings []model.ExtractionWarning, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s step aborted: %v", s.Name(), r)
		}
	}()
	return s.Do(p, rec)
}
