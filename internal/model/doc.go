// Package model defines the data structures produced by page extraction.
//
// The main types are:
//   - PageRecord: the structured result of extracting one HTML page
//   - LinkRef, ImageRef, HeadingBlock, Metadata: the parts of a PageRecord
//   - ExtractionWarning: a non-fatal anomaly recorded while extracting
//
// JSON field names are part of the output contract and are consumed by
// existing tools, so they must not change.
package model
