package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/pagelens/internal/analytics"
	"github.com/nao1215/pagelens/internal/model"
	"github.com/nao1215/pagelens/internal/store"
)

const ruleWidth = 70

// SimpleWriter writes a plain text summary for terminals: title and
// counts, word statistics, the heading outline, links grouped by domain and
// an indented tree of subpages.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints a section header even when the section has no items.
	showEmpty bool

	// verbose adds heading content and every link with its text.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty prints sections that have nothing in them.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose lists every link and paragraph instead of counting them.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter returns a SimpleWriter writing to output.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary of rec.
func (w *SimpleWriter) Write(rec *model.PageRecord) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, rec)
	w.writeStats(&sb, analytics.SummarizeMap(rec.WordFrequency))
	w.writeOutline(&sb, rec.Headings)
	w.writeLinks(&sb, rec.Links)
	w.writeSubpages(&sb, rec)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, rec *model.PageRecord) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                          PAGELENS REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "URL:         %s\n", rec.SourceURL)
	fmt.Fprintf(sb, "Title:       %s\n", rec.Title)
	if rec.Description != "" {
		fmt.Fprintf(sb, "Description: %s\n", truncateString(rec.Description, 120))
	}
	fmt.Fprintf(sb, "Links:       %d\n", len(rec.Links))
	fmt.Fprintf(sb, "Images:      %d\n", len(rec.Images))
	fmt.Fprintf(sb, "Headings:    %d\n", len(rec.Headings))
	fmt.Fprintf(sb, "Paragraphs:  %d\n", len(rec.Paragraphs))
	fmt.Fprintf(sb, "Pages:       %d\n", rec.PageCount())
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeStats(sb *strings.Builder, stats analytics.Stats) {
	if stats.TotalWords == 0 && !w.showEmpty {
		return
	}
	section(sb, "WORD STATISTICS")

	fmt.Fprintf(sb, "  Total words:    %d\n", stats.TotalWords)
	fmt.Fprintf(sb, "  Unique words:   %d\n", stats.UniqueWords)
	fmt.Fprintf(sb, "  Average length: %.2f\n", stats.AverageWordLength)
	fmt.Fprintf(sb, "  Reading time:   %d min\n", stats.ReadingMinutes)
	if len(stats.TopWords) > 0 {
		sb.WriteString("\n  Top words:\n")
		for i, wc := range stats.TopWords {
			fmt.Fprintf(sb, "    %d. %-20s %d\n", i+1, wc.Word, wc.Count)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeOutline(sb *strings.Builder, headings []model.HeadingBlock) {
	if len(headings) == 0 && !w.showEmpty {
		return
	}
	section(sb, "OUTLINE")

	if len(headings) == 0 {
		sb.WriteString("  No headings\n\n")
		return
	}
	for _, h := range headings {
		fmt.Fprintf(sb, "  %s[%s] %s\n", strings.Repeat("  ", headingDepth(h.Level)), h.Level, h.Text)
		if w.verbose && h.Content != "" {
			fmt.Fprintf(sb, "  %s     %s\n", strings.Repeat("  ", headingDepth(h.Level)), truncateString(h.Content, 100))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeLinks(sb *strings.Builder, links []model.LinkRef) {
	if len(links) == 0 && !w.showEmpty {
		return
	}
	section(sb, "LINKS")

	if len(links) == 0 {
		sb.WriteString("  No links\n\n")
		return
	}

	domains := make(map[string]int)
	var order []string
	for _, l := range links {
		if _, ok := domains[l.Domain]; !ok {
			order = append(order, l.Domain)
		}
		domains[l.Domain]++
	}
	for _, d := range order {
		fmt.Fprintf(sb, "  [+] %-40s %d\n", d, domains[d])
	}

	if w.verbose {
		sb.WriteString("\n")
		for _, l := range links {
			fmt.Fprintf(sb, "  * %s\n    %s\n", truncateString(l.Text, 60), l.URL)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSubpages(sb *strings.Builder, rec *model.PageRecord) {
	if len(rec.Subpages) == 0 {
		return
	}
	section(sb, "SUBPAGES")

	rec.Walk(func(page *model.PageRecord, depth int) {
		if depth == 0 {
			return
		}
		fmt.Fprintf(sb, "  %s- %s\n  %s  %s\n",
			strings.Repeat("  ", depth-1), page.Title,
			strings.Repeat("  ", depth-1), page.SourceURL)
	})
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by pagelens\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

// WriteDiff outputs the differences between two saved runs.
func (w *SimpleWriter) WriteDiff(d *store.Diff) (int, error) {
	var sb strings.Builder

	section(&sb, "CHANGES")
	fmt.Fprintf(&sb, "From: %s  %s\n", d.From.ID, d.From.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "To:   %s  %s\n\n", d.To.ID, d.To.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	if !d.Changed() {
		sb.WriteString("  No changes\n")
		return io.WriteString(w.output, sb.String())
	}

	if d.TitleChanged {
		fmt.Fprintf(&sb, "  Title: %q -> %q\n", d.OldTitle, d.NewTitle)
	}
	fmt.Fprintf(&sb, "  Paragraphs: %+d\n", d.ParagraphDelta)
	fmt.Fprintf(&sb, "  Headings:   %+d\n", d.HeadingDelta)
	fmt.Fprintf(&sb, "  Words:      %+d\n", d.WordDelta)

	for _, l := range d.AddedLinks {
		fmt.Fprintf(&sb, "  + %s\n", l)
	}
	for _, l := range d.RemovedLinks {
		fmt.Fprintf(&sb, "  - %s\n", l)
	}
	if d.ContentChanged && !d.TitleChanged && len(d.AddedLinks) == 0 && len(d.RemovedLinks) == 0 {
		sb.WriteString("  Content changed\n")
	}
	return io.WriteString(w.output, sb.String())
}
