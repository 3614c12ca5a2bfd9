package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagelens/internal/report"
	"github.com/nao1215/pagelens/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List saved scrape runs",
		Long: `History lists the URLs that have saved runs, or the runs of one URL,
newest first. Runs are saved by 'pagelens scrape' unless --no-save is given.

Examples:
  # List every URL with saved runs
  pagelens history

  # List the runs of one URL
  pagelens history https://example.com

  # Print a saved run as JSON
  pagelens history show --json 0b6c...

  # Compare the two latest runs of a URL
  pagelens history compare https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.PersistentFlags().String("db-dir", "",
		"History database directory (default: XDG data dir)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum runs to list (0 for all)")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryCompareCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShowCmd,
	}
	cmd.Flags().BoolP("json", "j", false, "Output JSON report")
	cmd.Flags().Bool("markdown", false, "Output Markdown report")
	return cmd
}

func newHistoryCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Show what changed between two runs",
		Long: `Compare shows title changes, added and removed links, and paragraph,
heading and word count changes between two runs. Without --from and --to
it compares the two latest runs of the URL.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCompareCmd,
	}
	cmd.Flags().String("from", "", "ID of the older run")
	cmd.Flags().String("to", "", "ID of the newer run")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")
	return cmd
}

// openHistory opens an existing history database. ok is false when none
// has been created yet.
func openHistory(cmd *cobra.Command) (db *store.HistoryDB, ok bool, err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, false, err
	}
	if dir := stringFlag(cmd, "db-dir"); dir != "" {
		cfg.DBDir = dir
	}
	if _, err := os.Stat(filepath.Join(cfg.DBDir, store.FileName)); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	db, err = store.Open(cfg.DBDir, store.Options{EnableWAL: true})
	if err != nil {
		return nil, false, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, true, nil
}

func printNoHistory(w io.Writer) {
	fmt.Fprintln(w, "No saved runs found.")
	fmt.Fprintln(w, "\nUse 'pagelens scrape <url>' to extract a page.")
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	db, ok, err := openHistory(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !ok {
		printNoHistory(out)
		return nil
	}
	defer db.Close()

	if len(args) == 0 {
		return listSources(cmd.Context(), db, out)
	}
	return listRuns(cmd.Context(), db, out, args[0], limit)
}

func listSources(ctx context.Context, db *store.HistoryDB, out io.Writer) error {
	sources, err := db.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		printNoHistory(out)
		return nil
	}

	fmt.Fprintf(out, "Saved URLs (%d):\n\n", len(sources))
	fmt.Fprintf(out, "  %-5s  %-19s  %s\n", "Runs", "Last run", "URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, s := range sources {
		fmt.Fprintf(out, "  %-5d  %-19s  %s\n", s.Runs, s.LastRun.Local().Format(timeLayout), s.URL)
	}
	fmt.Fprintln(out, "\nUse 'pagelens history <url>' to see the runs of a URL.")
	return nil
}

func listRuns(ctx context.Context, db *store.HistoryDB, out io.Writer, sourceURL string, limit int) error {
	runs, err := db.History(ctx, sourceURL, limit)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No saved runs for %s\n", sourceURL)
		return nil
	}

	fmt.Fprintf(out, "Runs of %s (%d):\n\n", sourceURL, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-5s  %-7s  %-5s  %s\n", "ID", "Date", "Depth", "Mode", "Links", "Title")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %-5d  %-7s  %-5d  %s\n",
			r.ID, r.CreatedAt.Local().Format(timeLayout), r.Depth, r.Mode, r.LinkCount, r.Title)
	}
	return nil
}

func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	db, ok, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if !ok {
		printNoHistory(cmd.OutOrStdout())
		return nil
	}
	defer db.Close()

	_, rec, err := db.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var w report.Writer
	switch out := cmd.OutOrStdout(); {
	case jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out)
	}
	_, err = w.Write(rec)
	return err
}

func runHistoryCompareCmd(cmd *cobra.Command, args []string) error {
	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return err
	}
	to, err := cmd.Flags().GetString("to")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	byID := from != "" || to != ""
	switch {
	case byID && (from == "" || to == ""):
		return errors.New("--from and --to must be given together")
	case !byID && len(args) == 0:
		return errors.New("a URL is required unless --from and --to are given")
	}

	db, ok, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if !ok {
		printNoHistory(cmd.OutOrStdout())
		return nil
	}
	defer db.Close()

	var d *store.Diff
	if byID {
		d, err = db.CompareRuns(cmd.Context(), from, to)
	} else {
		d, err = db.Compare(cmd.Context(), args[0])
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	_, err = report.NewSimpleWriter(cmd.OutOrStdout()).WriteDiff(d)
	return err
}
