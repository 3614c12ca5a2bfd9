package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nao1215/pagelens/internal/model"
	"github.com/nao1215/pagelens/internal/store"
)

func seedHistory(t *testing.T, records ...*model.PageRecord) (dir string, runs []*store.Run) {
	t.Helper()

	dir = t.TempDir()
	db, err := store.Open(dir, store.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	for _, rec := range records {
		run, err := db.Save(t.Context(), rec, 0, "content")
		if err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		runs = append(runs, run)
	}
	return dir, runs
}

func historyPage(title string, links ...string) *model.PageRecord {
	rec := model.NewPageRecord("https://example.com/")
	rec.Title = title
	for _, l := range links {
		rec.Links = append(rec.Links, model.LinkRef{URL: l, Text: l, Domain: "example.com"})
	}
	return rec
}

func TestHistoryWithoutDatabase(t *testing.T) {
	t.Parallel()

	cfgPath := emptyConfig(t)
	dir := t.TempDir()

	for _, args := range [][]string{
		{"history"},
		{"history", "https://example.com/"},
		{"history", "show", "some-id"},
		{"history", "compare", "https://example.com/"},
	} {
		args = append(args, "--config", cfgPath, "--db-dir", dir)
		stdout, _, err := runCLI(t, args...)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", args, err)
			continue
		}
		if !strings.Contains(stdout, "No saved runs found") {
			t.Errorf("%v: unexpected output:\n%s", args, stdout)
		}
	}
}

func TestHistoryCompare(t *testing.T) {
	t.Parallel()

	cfgPath := emptyConfig(t)
	dir, runs := seedHistory(t,
		historyPage("Old", "https://example.com/a", "https://example.com/b"),
		historyPage("New", "https://example.com/b", "https://example.com/c"),
	)

	t.Run("latest two runs", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := runCLI(t, "history", "compare", "--config", cfgPath, "--db-dir", dir, "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{`"Old" -> "New"`, "+ https://example.com/c", "- https://example.com/a"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("by id as JSON", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := runCLI(t, "history", "compare", "--config", cfgPath, "--db-dir", dir,
			"--from", runs[0].ID, "--to", runs[1].ID, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var d store.Diff
		if err := json.Unmarshal([]byte(stdout), &d); err != nil {
			t.Fatalf("failed to decode diff: %v", err)
		}
		if !d.TitleChanged || d.From.ID != runs[0].ID || d.To.ID != runs[1].ID {
			t.Errorf("unexpected diff: %+v", d)
		}
	})

	t.Run("flag validation", func(t *testing.T) {
		t.Parallel()

		if _, _, err := runCLI(t, "history", "compare", "--config", cfgPath, "--db-dir", dir, "--from", runs[0].ID); err == nil {
			t.Error("expected error for --from without --to")
		}
		if _, _, err := runCLI(t, "history", "compare", "--config", cfgPath, "--db-dir", dir); err == nil {
			t.Error("expected error without URL")
		}
	})

	t.Run("not enough runs", func(t *testing.T) {
		t.Parallel()

		single, _ := seedHistory(t, historyPage("Only"))
		_, _, err := runCLI(t, "history", "compare", "--config", cfgPath, "--db-dir", single, "https://example.com/")
		if err == nil {
			t.Fatal("expected error with a single run")
		}
	})
}

func TestHistoryShow(t *testing.T) {
	t.Parallel()

	cfgPath := emptyConfig(t)
	dir, runs := seedHistory(t, historyPage("Stored", "https://example.com/a"))

	stdout, _, err := runCLI(t, "history", "show", "--config", cfgPath, "--db-dir", dir, "--markdown", runs[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "# Stored") {
		t.Errorf("expected markdown title, got:\n%s", stdout)
	}

	if _, _, err := runCLI(t, "history", "show", "--config", cfgPath, "--db-dir", dir, "missing-id"); err == nil {
		t.Error("expected error for unknown run")
	}
	if _, _, err := runCLI(t, "history", "show", "--config", cfgPath, "--db-dir", dir, "--json", "--markdown", runs[0].ID); err == nil {
		t.Error("expected error for two formats")
	}
}
