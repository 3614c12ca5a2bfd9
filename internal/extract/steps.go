package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pagelens/internal/analytics"
	"github.com/nao1215/pagelens/internal/model"
	"github.com/nao1215/pagelens/internal/urlutil"
)

// step fills one category of a PageRecord.
// Warnings describe elements that were skipped; an error means the
// category could not be completed and may hold partial results.
type step interface {
	Do(p *page, rec *model.PageRecord) ([]model.ExtractionWarning, error)
	Name() string
}

// page is the parsed document shared by the steps of one extraction.
// Steps read the tree and never modify it.
type page struct {
	doc       *goquery.Document
	base      *url.URL
	mode      Mode
	frequency *analytics.FrequencyTable
}

const (
	headingSelector  = "h1, h2, h3, h4, h5, h6"
	imagePlaceholder = "[Image]"
	excludedImage    = "Special:"
)

func isHeading(name string) bool {
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

type titleStep struct{}

func (titleStep) Name() string { return model.CategoryTitle }

func (titleStep) Do(p *page, rec *model.PageRecord) ([]model.ExtractionWarning, error) {
	if title := strings.TrimSpace(p.doc.Find("title").First().Text()); title != "" {
		rec.Title = title
	}
	return nil, nil
}

type metadataStep struct{}

func (metadataStep) Name() string { return model.CategoryMetadata }

func (metadataStep) Do(p *page, rec *model.PageRecord) ([]model.ExtractionWarning, error) {
	rec.Description = metaContent(p.doc, `meta[name="description"]`)
	rec.Metadata = model.Metadata{
		OGTitle:            metaContent(p.doc, `meta[property="og:title"]`),
		OGDescription:      metaContent(p.doc, `meta[property="og:description"]`),
		OGImage:            metaContent(p.doc, `meta[property="og:image"]`),
		TwitterCard:        metaContent(p.doc, `meta[name="twitter:card"]`),
		TwitterTitle:       metaContent(p.doc, `meta[name="twitter:title"]`),
		TwitterDescription: metaContent(p.doc, `meta[name="twitter:description"]`),
		TwitterImage:       metaContent(p.doc, `meta[name="twitter:image"]`),
	}
	return nil, nil
}

type linksStep struct{}

func (linksStep) Name() string { return model.CategoryLinks }

// Do collects anchors with both an href and visible text. Anchors are
// deduplicated by their raw href; in ModeContent, links to administrative
// pages are dropped.
func (linksStep) Do(p *page, rec *model.PageRecord) ([]model.ExtractionWarning, error) {
	var warnings []model.ExtractionWarning
	seen := make(map[string]struct{})

	p.doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}

		abs, err := urlutil.Resolve(href, p.base)
		if err != nil {
			warnings = append(warnings, model.ExtractionWarning{
				Category: model.CategoryLinks,
				Detail:   "skipped link: " + err.Error(),
			})
			return
		}
		if p.mode == ModeContent && !urlutil.ShouldInclude(abs) {
			return
		}

		seen[href] = struct{}{}
		rec.Links = append(rec.Links, model.LinkRef{
			URL:    abs,
			Text:   text,
			Domain: urlutil.Domain(abs),
		})
	})
	return warnings, nil
}

type imagesStep struct{}

func (imagesStep) Name() string { return model.CategoryImages }

func (imagesStep) Do(p *page, rec *model.PageRecord) ([]model.ExtractionWarning, error) {
	var warnings []model.ExtractionWarning

	p.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || strings.TrimSpace(src) == "" || strings.Contains(src, excludedImage) {
			return
		}
		abs, err := urlutil.Resolve(src, p.base)
		if err != nil {
			warnings = append(warnings, model.ExtractionWarning{
				Category: model.CategoryImages,
				Detail:   "skipped image: " + err.Error(),
			})
			return
		}
		rec.Images = append(rec.Images, model.ImageRef{
			Src: abs,
			Alt: strings.TrimSpace(s.AttrOr("alt", "")),
		})
	})
	return warnings, nil
}

type headingsStep struct{}

func (headingsStep) Name() string { return model.CategoryHeadings }

// Do binds each heading to the paragraph and list siblings that follow it.
// The walk stops at the next heading of any level.
func (headingsStep) Do(p *page, rec *model.PageRecord) ([]model.ExtractionWarning, error) {
	p.doc.Find(headingSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}

		var parts []string
		for next := s.Next(); next.Length() > 0; next = next.Next() {
			name := goquery.NodeName(next)
			if isHeading(name) {
				break
			}
			switch name {
			case "p", "ul", "ol":
				if t := strings.TrimSpace(next.Text()); t != "" {
					parts = append(parts, t)
				}
			case "img":
				if p.mode == ModeContent {
					parts = append(parts, imagePlaceholder)
				}
			}
		}

		rec.Headings = append(rec.Headings, model.HeadingBlock{
			Level:   goquery.NodeName(s),
			Text:    text,
			Content: strings.TrimSpace(strings.Join(parts, " ")),
			Anchor:  Slug(text),
		})
	})
	return nil, nil
}

type paragraphsStep struct{}

func (paragraphsStep) Name() string { return model.CategoryParagraphs }

func (paragraphsStep) Do(p *page, rec *model.PageRecord) ([]model.ExtractionWarning, error) {
	p.doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			rec.Paragraphs = append(rec.Paragraphs, text)
		}
	})
	return nil, nil
}

type wordFrequencyStep struct {
	source WordSource
}

func (wordFrequencyStep) Name() string { return model.CategoryWordFrequency }

// Do counts the words of the body text, or of the extracted headings and
// their content when the headings source is selected.
func (s wordFrequencyStep) Do(p *page, rec *model.PageRecord) ([]model.ExtractionWarning, error) {
	switch s.source {
	case WordSourceHeadings:
		for _, h := range rec.Headings {
			p.frequency.AddText(h.Text + " " + h.Content)
		}
	default:
		p.frequency.AddText(p.doc.Find("body").Text())
	}
	rec.WordFrequency = p.frequency.Map()
	return nil, nil
}
