// Package report renders page records for people and for tools.
//
// JSONWriter emits the record exactly as it is serialized everywhere
// else, EnvelopeWriter wraps it with version and word statistics,
// MarkdownWriter produces a shareable document and SimpleWriter a plain
// terminal summary. All of them implement Writer.
package report
