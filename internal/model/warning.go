package model

import "fmt"

// Extraction categories. Each category is extracted independently, and a
// failure in one is reported as a warning without affecting the others.
const (
	CategoryTitle         = "title"
	CategoryMetadata      = "metadata"
	CategoryLinks         = "links"
	CategoryImages        = "images"
	CategoryHeadings      = "headings"
	CategoryParagraphs    = "paragraphs"
	CategoryWordFrequency = "wordFrequency"
)

// ExtractionWarning records a non-fatal anomaly found while extracting a page,
// such as an href that cannot be parsed.
type ExtractionWarning struct {
	// Category is the part of the record the anomaly belongs to.
	Category string `json:"category"`
	// URL is the page being extracted.
	URL string `json:"url"`
	// Detail describes what went wrong.
	Detail string `json:"detail"`
}

// String returns a one-line description of the warning.
func (w ExtractionWarning) String() string {
	return fmt.Sprintf("%s: %s (%s)", w.Category, w.Detail, w.URL)
}
