package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/pagelens/internal/model"
)

func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	h, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	h.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return h
}

func samplePage(url, title string, links ...string) *model.PageRecord {
	rec := model.NewPageRecord(url)
	rec.Title = title
	rec.Paragraphs = []string{"Hello world."}
	rec.WordFrequency = map[string]int{"hello": 1, "world": 1}
	for _, l := range links {
		rec.Links = append(rec.Links, model.LinkRef{URL: l, Text: l, Domain: "example.com"})
	}
	return rec
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "dir")
		h, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer h.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if h.Path() != filepath.Join(dir, FileName) {
			t.Errorf("Path() = %q", h.Path())
		}
	})

	t.Run("missing database without create fails", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("Open() error = nil, want error")
		}
	})

	t.Run("reopening keeps runs", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		h, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		run, err := h.Save(context.Background(), samplePage("https://example.com/", "Home"), 0, "content")
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		_ = h.Close()

		h, err = Open(dir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		defer h.Close()
		if _, _, err := h.Get(context.Background(), run.ID); err != nil {
			t.Errorf("Get() after reopen error = %v", err)
		}
	})
}

func TestSaveAndGet(t *testing.T) {
	t.Parallel()

	h := setupTestDB(t)
	ctx := context.Background()

	rec := samplePage("https://example.com/", "Home", "https://example.com/a", "https://example.com/b")
	rec.Subpages = []*model.PageRecord{samplePage("https://example.com/a", "A")}

	run, err := h.Save(ctx, rec, 1, "content")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if run.ID == "" {
		t.Error("Save() returned empty ID")
	}
	if run.PageCount != 2 || run.LinkCount != 2 || run.Depth != 1 {
		t.Errorf("run = %+v, want 2 pages, 2 links, depth 1", run)
	}

	gotRun, gotRec, err := h.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotRun.Title != "Home" || gotRun.Mode != "content" {
		t.Errorf("Get() run = %+v", gotRun)
	}
	if !gotRun.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", gotRun.CreatedAt, run.CreatedAt)
	}
	if gotRun.ContentHash != run.ContentHash {
		t.Errorf("ContentHash = %q, want %q", gotRun.ContentHash, run.ContentHash)
	}
	if len(gotRec.Subpages) != 1 || gotRec.Subpages[0].Title != "A" {
		t.Errorf("Get() record subpages = %+v", gotRec.Subpages)
	}

	if _, _, err := h.Get(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestHistoryAndSources(t *testing.T) {
	t.Parallel()

	h := setupTestDB(t)
	ctx := context.Background()

	for _, title := range []string{"v1", "v2", "v3"} {
		if _, err := h.Save(ctx, samplePage("https://example.com/", title), 0, "content"); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	if _, err := h.Save(ctx, samplePage("https://other.example/", "Other"), 0, "generic"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	runs, err := h.History(ctx, "https://example.com/", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(History) = %d, want 3", len(runs))
	}
	for i, want := range []string{"v3", "v2", "v1"} {
		if runs[i].Title != want {
			t.Errorf("History[%d].Title = %q, want %q", i, runs[i].Title, want)
		}
	}

	limited, err := h.History(ctx, "https://example.com/", 2)
	if err != nil {
		t.Fatalf("History(limit) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len(History(limit 2)) = %d, want 2", len(limited))
	}

	sources, err := h.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("len(ListSources) = %d, want 2", len(sources))
	}
	if sources[0].URL != "https://example.com/" || sources[0].Runs != 3 {
		t.Errorf("sources[0] = %+v", sources[0])
	}
	if !sources[0].LastRun.Equal(runs[0].CreatedAt) {
		t.Errorf("sources[0].LastRun = %v, want %v", sources[0].LastRun, runs[0].CreatedAt)
	}
}

func TestHistoryOrdersSubsecondRuns(t *testing.T) {
	t.Parallel()

	h := setupTestDB(t)
	ctx := context.Background()

	times := []time.Time{
		time.Date(2026, 1, 2, 12, 0, 5, 0, time.UTC),
		time.Date(2026, 1, 2, 12, 0, 5, 500_000_000, time.UTC),
	}
	var ids []string
	for i, title := range []string{"whole second", "half second"} {
		at := times[i]
		h.now = func() time.Time { return at }
		run, err := h.Save(ctx, samplePage("https://example.com/", title), 0, "content")
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := h.History(ctx, "https://example.com/", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[1] || runs[1].ID != ids[0] {
		t.Fatalf("History() order = %v, want newest %s first", runs, ids[1])
	}
	if !runs[0].CreatedAt.Equal(times[1]) {
		t.Errorf("CreatedAt = %v, want %v", runs[0].CreatedAt, times[1])
	}

	d, err := h.Compare(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if d.From.ID != ids[0] || d.To.ID != ids[1] {
		t.Errorf("compared %s -> %s, want %s -> %s", d.From.ID, d.To.ID, ids[0], ids[1])
	}
}

func TestHistoryDBCompare(t *testing.T) {
	t.Parallel()

	t.Run("needs two runs", func(t *testing.T) {
		t.Parallel()

		h := setupTestDB(t)
		if _, err := h.Save(context.Background(), samplePage("https://example.com/", "Only"), 0, "content"); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, err := h.Compare(context.Background(), "https://example.com/"); !errors.Is(err, ErrNotEnoughRuns) {
			t.Errorf("Compare() error = %v, want ErrNotEnoughRuns", err)
		}
	})

	t.Run("diffs the latest two runs", func(t *testing.T) {
		t.Parallel()

		h := setupTestDB(t)
		ctx := context.Background()
		pages := []*model.PageRecord{
			samplePage("https://example.com/", "Ancient", "https://example.com/x"),
			samplePage("https://example.com/", "Old", "https://example.com/a", "https://example.com/b"),
			samplePage("https://example.com/", "New", "https://example.com/b", "https://example.com/c"),
		}
		var ids []string
		for _, p := range pages {
			run, err := h.Save(ctx, p, 0, "content")
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			ids = append(ids, run.ID)
		}

		d, err := h.Compare(ctx, "https://example.com/")
		if err != nil {
			t.Fatalf("Compare() error = %v", err)
		}
		if d.From.ID != ids[1] || d.To.ID != ids[2] {
			t.Errorf("compared %s -> %s, want %s -> %s", d.From.ID, d.To.ID, ids[1], ids[2])
		}
		if !d.TitleChanged || d.OldTitle != "Old" || d.NewTitle != "New" {
			t.Errorf("title diff = %v %q -> %q", d.TitleChanged, d.OldTitle, d.NewTitle)
		}
		if len(d.AddedLinks) != 1 || d.AddedLinks[0] != "https://example.com/c" {
			t.Errorf("AddedLinks = %v", d.AddedLinks)
		}
		if len(d.RemovedLinks) != 1 || d.RemovedLinks[0] != "https://example.com/a" {
			t.Errorf("RemovedLinks = %v", d.RemovedLinks)
		}
	})
}
