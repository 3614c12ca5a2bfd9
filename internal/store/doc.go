// Package store keeps a history of extraction runs in SQLite.
//
// Every saved run holds the full page record as JSON next to a few
// summary columns (title, link count, content hash) so that listing and
// comparing runs does not need to decode the records. The database is a
// single file opened through modernc.org/sqlite, which needs no cgo.
package store
