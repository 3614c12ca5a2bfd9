// Package extract turns an HTML document into a model.PageRecord.
//
// Extraction runs as an ordered list of steps, one per category of the
// record: title, metadata, links, images, headings, paragraphs and word
// frequency. Each step works on its own part of the record. A step that
// fails, or panics on malformed markup, leaves its category empty or
// partial and adds an ExtractionWarning; the remaining steps still run.
//
// Two modes are supported. ModeContent is meant for article pages: it
// removes script, style and reference markup before extraction, drops
// links to administrative pages, and marks images that follow a heading
// with an "[Image]" placeholder. ModeGeneric keeps every link and does not
// touch the document.
//
// Extraction is deterministic: the same bytes and base URL always produce
// the same record.
package extract
