package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pagelens/internal/model"
)

// FileName is the database file created inside the store directory.
const FileName = "pagelens.db"

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("run not found")

	// ErrNotEnoughRuns is returned by Compare when fewer than two runs
	// exist for a URL.
	ErrNotEnoughRuns = errors.New("at least two runs are needed to compare")
)

// HistoryDB stores extraction runs in a sqlite database, one row per saved
// PageRecord. Each run keeps the full record as JSON next to the columns
// used for listing (source URL, title, page and link counts, content hash),
// so History and ListSources never decode records and Get/Compare do.
//
// A HistoryDB is safe for concurrent use. All queries share one connection.
type HistoryDB struct {
	// db is the sqlite connection pool.
	db *sql.DB

	// dbPath is the database file, reported by Path.
	dbPath string

	// now stamps new runs. Tests replace it to control ordering.
	now func() time.Time
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Run is the summary of one saved extraction.
type Run struct {
	ID          string    `json:"id"`
	SourceURL   string    `json:"sourceUrl"`
	Depth       int       `json:"depth"`
	Mode        string    `json:"mode"`
	Title       string    `json:"title"`
	PageCount   int       `json:"pageCount"`
	LinkCount   int       `json:"linkCount"`
	ContentHash string    `json:"contentHash"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Source summarizes the runs saved for one URL.
type Source struct {
	URL     string
	Runs    int
	LastRun time.Time
}

// Open opens or creates the history database inside dir.
func Open(dir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dir, FileName)

	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath, now: time.Now}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string { return h.dbPath }

// Close closes the database.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		mode TEXT NOT NULL,
		title TEXT,
		page_count INTEGER NOT NULL,
		link_count INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		record_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source_url);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Save stores rec as a new run and returns its summary.
func (h *HistoryDB) Save(ctx context.Context, rec *model.PageRecord, depth int, mode string) (*Run, error) {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}
	hash, err := rec.ContentHash()
	if err != nil {
		return nil, fmt.Errorf("failed to hash record: %w", err)
	}

	run := &Run{
		ID:          uuid.NewString(),
		SourceURL:   rec.SourceURL,
		Depth:       depth,
		Mode:        mode,
		Title:       rec.Title,
		PageCount:   rec.PageCount(),
		LinkCount:   len(rec.Links),
		ContentHash: hash,
		CreatedAt:   h.now().UTC(),
	}

	query := `
	INSERT INTO runs (id, source_url, depth, mode, title, page_count, link_count, content_hash, record_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = h.db.ExecContext(ctx, query,
		run.ID,
		run.SourceURL,
		run.Depth,
		run.Mode,
		run.Title,
		run.PageCount,
		run.LinkCount,
		run.ContentHash,
		string(recordJSON),
		run.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	return run, nil
}

const runColumns = `id, source_url, depth, mode, title, page_count, link_count, content_hash, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner, extra ...any) (*Run, error) {
	var run Run
	var title sql.NullString
	var createdAt string
	dest := append([]any{
		&run.ID,
		&run.SourceURL,
		&run.Depth,
		&run.Mode,
		&title,
		&run.PageCount,
		&run.LinkCount,
		&run.ContentHash,
		&createdAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	run.Title = title.String
	run.CreatedAt = parseTimestamp(createdAt)
	return &run, nil
}

// Get returns the run with the given ID and its full record.
func (h *HistoryDB) Get(ctx context.Context, id string) (*Run, *model.PageRecord, error) {
	query := `SELECT ` + runColumns + `, record_json FROM runs WHERE id = ?`

	var recordJSON string
	run, err := scanRun(h.db.QueryRowContext(ctx, query, id), &recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run: %w", err)
	}

	var rec model.PageRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return run, &rec, nil
}

// History returns the runs saved for sourceURL, newest first. A limit of
// zero or less returns all of them.
func (h *HistoryDB) History(ctx context.Context, sourceURL string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE source_url = ? ORDER BY created_at DESC, rowid DESC`
	args := []any{sourceURL}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListSources returns every URL with saved runs, in URL order.
func (h *HistoryDB) ListSources(ctx context.Context) ([]Source, error) {
	query := `
	SELECT source_url, COUNT(*), MAX(created_at)
	FROM runs
	GROUP BY source_url
	ORDER BY source_url
	`
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		var last string
		if err := rows.Scan(&s.URL, &s.Runs, &last); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		s.LastRun = parseTimestamp(last)
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Compare diffs the two most recent runs of sourceURL.
func (h *HistoryDB) Compare(ctx context.Context, sourceURL string) (*Diff, error) {
	runs, err := h.History(ctx, sourceURL, 2)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, fmt.Errorf("%w: %s has %d", ErrNotEnoughRuns, sourceURL, len(runs))
	}
	return h.CompareRuns(ctx, runs[1].ID, runs[0].ID)
}

// CompareRuns diffs two runs by ID, from the older to the newer.
func (h *HistoryDB) CompareRuns(ctx context.Context, fromID, toID string) (*Diff, error) {
	fromRun, fromRec, err := h.Get(ctx, fromID)
	if err != nil {
		return nil, err
	}
	toRun, toRec, err := h.Get(ctx, toID)
	if err != nil {
		return nil, err
	}
	d := Compare(fromRec, toRec)
	d.From = *fromRun
	d.To = *toRun
	return d, nil
}

// timestampLayout is RFC 3339 with a fixed nine-digit fraction so that
// created_at sorts lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
