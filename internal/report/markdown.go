package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/pagelens/internal/analytics"
	"github.com/nao1215/pagelens/internal/model"
)

// MarkdownWriter writes records as GitHub flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter returns a MarkdownWriter writing to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders rec, its word statistics and a table of its subpages.
func (w *MarkdownWriter) Write(rec *model.PageRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)
	stats := analytics.SummarizeMap(rec.WordFrequency)

	w.writeHeader(md, rec)
	w.writeMetadata(md, rec.Metadata)
	w.writeStats(md, stats)
	w.writeOutline(md, rec.Headings)
	w.writeLinks(md, rec.Links)
	w.writeImages(md, rec.Images)
	w.writeSubpages(md, rec)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, rec *model.PageRecord) {
	md.H1(rec.Title)
	md.PlainText("")

	description := rec.Description
	if description == "" {
		description = "-"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + rec.SourceURL + "`"},
			{"Description", escapeCell(description)},
			{"Links", strconv.Itoa(len(rec.Links))},
			{"Images", strconv.Itoa(len(rec.Images))},
			{"Headings", strconv.Itoa(len(rec.Headings))},
			{"Paragraphs", strconv.Itoa(len(rec.Paragraphs))},
			{"Pages", strconv.Itoa(rec.PageCount())},
		},
	})
	md.PlainText("")

	if rec.Title == model.UntitledPage {
		md.Warningf("%s has no usable <title> element.", rec.SourceURL)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeMetadata(md *markdown.Markdown, meta model.Metadata) {
	fields := []struct{ name, value string }{
		{"og:title", meta.OGTitle},
		{"og:description", meta.OGDescription},
		{"og:image", meta.OGImage},
		{"twitter:card", meta.TwitterCard},
		{"twitter:title", meta.TwitterTitle},
		{"twitter:description", meta.TwitterDescription},
		{"twitter:image", meta.TwitterImage},
	}

	var rows [][]string
	for _, f := range fields {
		if f.value != "" {
			rows = append(rows, []string{"`" + f.name + "`", escapeCell(truncateString(f.value, 80))})
		}
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Social Metadata")
	md.PlainText("")
	md.Table(markdown.TableSet{Header: []string{"Property", "Content"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStats(md *markdown.Markdown, stats analytics.Stats) {
	md.H2("Word Statistics")
	md.PlainText("")

	if stats.TotalWords == 0 {
		md.Note("No words were counted on this page.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total words", strconv.Itoa(stats.TotalWords)},
			{"Unique words", strconv.Itoa(stats.UniqueWords)},
			{"Average word length", strconv.FormatFloat(stats.AverageWordLength, 'f', 2, 64)},
			{"Reading time", fmt.Sprintf("%d min", stats.ReadingMinutes)},
		},
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Top Words"),
		piechart.WithShowData(true),
	)
	for _, wc := range stats.TopWords {
		chart.LabelAndIntValue(wc.Word, uint64(wc.Count)) //nolint:gosec // counts are positive
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeOutline(md *markdown.Markdown, headings []model.HeadingBlock) {
	if len(headings) == 0 {
		return
	}

	md.H2("Outline")
	md.PlainText("")

	items := make([]string, 0, len(headings))
	for _, h := range headings {
		indent := strings.Repeat("  ", headingDepth(h.Level))
		items = append(items, fmt.Sprintf("%s- %s `#%s`", indent, h.Text, h.Anchor))
	}
	md.PlainText(strings.Join(items, "\n"))
	md.PlainText("")

	for _, h := range headings {
		if h.Content != "" {
			md.Details(h.Text, h.Content)
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeLinks(md *markdown.Markdown, links []model.LinkRef) {
	md.H2("Links")
	md.PlainText("")

	if len(links) == 0 {
		md.PlainText("No links found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(links))
	for i, l := range links {
		rows[i] = []string{
			escapeCell(truncateString(l.Text, 40)),
			"`" + truncateString(l.URL, 80) + "`",
			l.Domain,
		}
	}
	md.Table(markdown.TableSet{Header: []string{"Text", "URL", "Domain"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeImages(md *markdown.Markdown, images []model.ImageRef) {
	if len(images) == 0 {
		return
	}

	md.H2("Images")
	md.PlainText("")

	rows := make([][]string, len(images))
	for i, img := range images {
		alt := img.Alt
		if alt == "" {
			alt = "-"
		}
		rows[i] = []string{"`" + truncateString(img.Src, 80) + "`", escapeCell(truncateString(alt, 60))}
	}
	md.Table(markdown.TableSet{Header: []string{"Source", "Alt"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSubpages(md *markdown.Markdown, rec *model.PageRecord) {
	if len(rec.Subpages) == 0 {
		return
	}

	md.H2("Subpages")
	md.PlainText("")

	var rows [][]string
	rec.Walk(func(page *model.PageRecord, depth int) {
		if depth == 0 {
			return
		}
		words := analytics.SummarizeMap(page.WordFrequency).TotalWords
		rows = append(rows, []string{
			strconv.Itoa(depth),
			escapeCell(truncateString(page.Title, 50)),
			"`" + truncateString(page.SourceURL, 80) + "`",
			strconv.Itoa(len(page.Links)),
			strconv.Itoa(words),
		})
	})
	md.Table(markdown.TableSet{
		Header: []string{"Depth", "Title", "URL", "Links", "Words"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pagelens](https://github.com/nao1215/pagelens)*")
}

// headingDepth maps "h1".."h6" to 0..5.
func headingDepth(level string) int {
	if len(level) == 2 && level[1] >= '1' && level[1] <= '6' {
		return int(level[1] - '1')
	}
	return 0
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// truncateString shortens s to at most maxLen runes, ending in "...".
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
