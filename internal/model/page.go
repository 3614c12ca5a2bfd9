package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// PageRecord is the structured result of extracting one HTML page.
// A PageRecord is built fresh for each extraction and is not modified
// after it has been returned to the caller.
type PageRecord struct {
	// SourceURL is the URL that was requested, exactly as given.
	SourceURL string `json:"url"`

	// Title is the trimmed text of the <title> element, or "Untitled".
	Title string `json:"title"`

	// Description is the content of <meta name="description">, possibly empty.
	Description string `json:"description"`

	// Links holds anchors in document order, deduplicated by raw href.
	Links []LinkRef `json:"links"`

	// Images holds <img> references in document order.
	Images []ImageRef `json:"images"`

	// Headings holds h1-h6 elements with the text that follows them.
	Headings []HeadingBlock `json:"headings"`

	// Paragraphs holds the non-empty trimmed text of every <p>.
	Paragraphs []string `json:"paragraphs"`

	// Metadata holds the Open Graph and Twitter card fields.
	Metadata Metadata `json:"metadata"`

	// WordFrequency maps lowercase tokens to their occurrence count.
	WordFrequency map[string]int `json:"wordFrequency"`

	// Subpages holds the records of followed links when crawling with depth > 0.
	// It is nil for a depth 0 extraction.
	Subpages []*PageRecord `json:"subpages,omitempty"`
}

// LinkRef is an anchor found on a page.
type LinkRef struct {
	// URL is always absolute.
	URL string `json:"url"`
	// Text is the trimmed visible text of the anchor.
	Text string `json:"text"`
	// Domain is the hostname component of URL.
	Domain string `json:"domain"`
}

// ImageRef is an <img> found on a page.
type ImageRef struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// HeadingBlock is a heading together with the content that follows it.
type HeadingBlock struct {
	// Level is the tag name, "h1" through "h6".
	Level string `json:"level"`
	// Text is the trimmed heading text.
	Text string `json:"text"`
	// Content is the joined text of the paragraph and list siblings that
	// follow the heading, up to the next heading of any level.
	Content string `json:"content"`
	// Anchor is a slug derived from Text. It is not unique within a page.
	Anchor string `json:"anchor"`
}

// Metadata holds the social card fields of a page. Absent fields are empty.
type Metadata struct {
	OGTitle            string `json:"ogTitle"`
	OGDescription      string `json:"ogDescription"`
	OGImage            string `json:"ogImage"`
	TwitterCard        string `json:"twitterCard"`
	TwitterTitle       string `json:"twitterTitle"`
	TwitterDescription string `json:"twitterDescription"`
	TwitterImage       string `json:"twitterImage"`
}

// UntitledPage is the title used when a page has no usable <title>.
const UntitledPage = "Untitled"

// NewPageRecord returns an empty record for sourceURL with non-nil slices,
// so that categories with no results serialize as [] rather than null.
func NewPageRecord(sourceURL string) *PageRecord {
	return &PageRecord{
		SourceURL:     sourceURL,
		Title:         UntitledPage,
		Links:         []LinkRef{},
		Images:        []ImageRef{},
		Headings:      []HeadingBlock{},
		Paragraphs:    []string{},
		WordFrequency: map[string]int{},
	}
}

// Walk calls fn for r and then for every subpage, depth first, in order.
// The depth argument is 0 for r itself.
func (r *PageRecord) Walk(fn func(page *PageRecord, depth int)) {
	r.walk(fn, 0)
}

func (r *PageRecord) walk(fn func(page *PageRecord, depth int), depth int) {
	if r == nil {
		return
	}
	fn(r, depth)
	for _, sub := range r.Subpages {
		sub.walk(fn, depth+1)
	}
}

// PageCount returns the number of records in the tree rooted at r.
func (r *PageRecord) PageCount() int {
	count := 0
	r.Walk(func(*PageRecord, int) { count++ })
	return count
}

// ContentHash returns the SHA-256 of the record's JSON encoding.
// Two extractions of identical HTML produce the same hash.
func (r *PageRecord) ContentHash() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
