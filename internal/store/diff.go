package store

import (
	"github.com/nao1215/pagelens/internal/analytics"
	"github.com/nao1215/pagelens/internal/model"
)

// Diff describes how a page changed between two runs.
type Diff struct {
	From Run `json:"from"`
	To   Run `json:"to"`

	TitleChanged bool   `json:"titleChanged"`
	OldTitle     string `json:"oldTitle,omitempty"`
	NewTitle     string `json:"newTitle,omitempty"`

	// AddedLinks and RemovedLinks hold absolute URLs in document order.
	AddedLinks   []string `json:"addedLinks"`
	RemovedLinks []string `json:"removedLinks"`

	ParagraphDelta int `json:"paragraphDelta"`
	HeadingDelta   int `json:"headingDelta"`
	WordDelta      int `json:"wordDelta"`

	ContentChanged bool `json:"contentChanged"`
}

// Changed reports whether anything differs between the two runs.
func (d *Diff) Changed() bool {
	return d.TitleChanged ||
		len(d.AddedLinks) > 0 ||
		len(d.RemovedLinks) > 0 ||
		d.ParagraphDelta != 0 ||
		d.HeadingDelta != 0 ||
		d.WordDelta != 0 ||
		d.ContentChanged
}

// Compare diffs the top-level pages of two records. Subpages only take
// part through the content hash.
func Compare(older, newer *model.PageRecord) *Diff {
	d := &Diff{
		OldTitle:       older.Title,
		NewTitle:       newer.Title,
		TitleChanged:   older.Title != newer.Title,
		ParagraphDelta: len(newer.Paragraphs) - len(older.Paragraphs),
		HeadingDelta:   len(newer.Headings) - len(older.Headings),
		WordDelta: analytics.SummarizeMap(newer.WordFrequency).TotalWords -
			analytics.SummarizeMap(older.WordFrequency).TotalWords,
	}

	d.AddedLinks = linkDifference(newer.Links, older.Links)
	d.RemovedLinks = linkDifference(older.Links, newer.Links)

	oldHash, errOld := older.ContentHash()
	newHash, errNew := newer.ContentHash()
	d.ContentChanged = errOld != nil || errNew != nil || oldHash != newHash
	return d
}

// linkDifference returns the URLs in a that are not in b.
func linkDifference(a, b []model.LinkRef) []string {
	inB := make(map[string]struct{}, len(b))
	for _, l := range b {
		inB[l.URL] = struct{}{}
	}
	var out []string
	for _, l := range a {
		if _, ok := inB[l.URL]; !ok {
			out = append(out, l.URL)
		}
	}
	return out
}
