package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagelens/internal/config"
	"github.com/nao1215/pagelens/internal/crawl"
	"github.com/nao1215/pagelens/internal/extract"
	"github.com/nao1215/pagelens/internal/model"
	"github.com/nao1215/pagelens/internal/report"
	"github.com/nao1215/pagelens/internal/store"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <url> [url...]",
		Short: "Extract the structure of one or more web pages",
		Long: `Scrape fetches each URL, extracts its title, metadata, headings with
their paragraphs, links, images and word frequencies, and prints a report.

With --depth N the first five links of every page are followed, up to N
levels below the seed (at most 3). Several seeds are crawled concurrently.
Every result is saved to the history database unless --no-save is given.

Examples:
  # Extract a single page
  pagelens scrape https://example.com

  # Follow links two levels deep and print JSON
  pagelens scrape --depth 2 --json https://example.com

  # Rotate through two proxies and a direct connection
  pagelens scrape -p http://proxy1:8080 -p socks5://proxy2:1080 -p direct https://example.com

  # Fetch through a relay started with 'pagelens serve'
  pagelens scrape --relay http://127.0.0.1:8080 https://example.com

  # Write a Markdown report to a file
  pagelens scrape --markdown -o report.md https://example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScrapeCmd,
	}

	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		fmt.Sprintf("Link levels to follow below each seed (0-%d)", config.MaxDepth))
	cmd.Flags().StringP("mode", "m", config.DefaultMode,
		`Extraction mode: "content" (article-focused) or "generic"`)
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of seeds crawled at once")
	cmd.Flags().Bool("visited", false,
		"Fetch each URL at most once per crawl")
	cmd.Flags().Bool("skip-failed", false,
		"Drop subpages that fail instead of failing the whole crawl")
	cmd.Flags().String("relay", "",
		"Base URL of a pagelens relay to fetch through")
	addEgressFlags(cmd)

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().Bool("envelope", false,
		"Wrap JSON output with the tool version, time and word statistics")
	cmd.Flags().Bool("markdown", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed); JSON and Markdown reports also print a summary to stdout")
	cmd.Flags().Bool("no-save", false,
		"Do not save results to the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data dir)")

	return cmd
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	envelope, err := cmd.Flags().GetBool("envelope")
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &scraper{
		cfg:      cfg,
		logger:   logger,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
		envelope: envelope,
	}
	return s.run(ctx, args)
}

// scraper runs one scrape command.
type scraper struct {
	cfg      *config.Config
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
	envelope bool
}

// plan groups seeds that share a depth and extraction mode, so one
// crawler serves all of them.
type plan struct {
	depth int
	mode  extract.Mode
}

func (s *scraper) run(ctx context.Context, seeds []string) error {
	if len(seeds) == 0 {
		return errors.New("no URLs provided (specify one or more URLs as arguments)")
	}

	var db *store.HistoryDB
	if s.cfg.SaveToDB {
		var err error
		db, err = store.Open(s.cfg.DBDir, store.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
	}

	eg, err := newEgress(ctx, s.cfg, s.logger, s.stderr, false)
	if err != nil {
		return err
	}
	defer eg.Close()

	output := s.stdout
	if s.cfg.ReportFile != "" {
		f, err := createReportFile(s.cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}
	writer := s.reportWriter(output)
	if s.cfg.ReportFile != "" && (s.cfg.JSONReport || s.cfg.MarkdownReport) {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(s.stdout))
	}

	start := time.Now()
	results, plans, err := s.crawlSeeds(ctx, eg, seeds)
	if err != nil {
		return err
	}

	failed := 0
	for i, res := range results {
		if res.Err != nil {
			failed++
			s.logger.Error("scrape failed", "url", res.URL, "error", res.Err)
			fmt.Fprintf(s.stderr, "Scrape error for %s: %v\n", res.URL, res.Err)
			continue
		}
		if _, err := writer.Write(res.Record); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		if err := s.save(ctx, db, res.Record, plans[i]); err != nil {
			s.logger.Error("failed to save run", "url", res.URL, "error", err)
		}
	}

	proxyRotations, uaRotations := eg.rotations()
	s.logger.Info("scrape finished",
		"seeds", len(seeds),
		"failed", failed,
		"proxyRotations", proxyRotations,
		"userAgentRotations", uaRotations,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(seeds))
	}
	return nil
}

// crawlSeeds crawls every seed with the depth and mode its site settings
// select. Results are in seed order.
func (s *scraper) crawlSeeds(ctx context.Context, eg *egress, seeds []string) ([]crawl.SeedResult, []plan, error) {
	plans := make([]plan, len(seeds))
	var order []plan
	groups := make(map[plan][]int)
	for i, seed := range seeds {
		depth, modeName := s.cfg.ForSeed(seed)
		mode, err := extract.ParseMode(modeName)
		if err != nil {
			return nil, nil, fmt.Errorf("site config for %s: %w", seed, err)
		}
		p := plan{depth: depth, mode: mode}
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], i)
		plans[i] = p
	}

	results := make([]crawl.SeedResult, len(seeds))
	for _, p := range order {
		idx := groups[p]
		group := make([]string, len(idx))
		for j, i := range idx {
			group[j] = seeds[i]
		}

		c := s.newCrawler(eg, p.mode)
		for j, res := range c.CrawlAll(ctx, group, p.depth, s.cfg.Concurrency) {
			results[idx[j]] = res
		}
	}
	return results, plans, nil
}

func (s *scraper) newCrawler(eg *egress, mode extract.Mode) *crawl.Crawler {
	extractor := extract.New(
		extract.WithMode(mode),
		extract.WithLogger(s.logger),
	)
	return crawl.New(eg.fetcher, extractor, eg.pool,
		crawl.WithLogger(s.logger),
		crawl.WithMaxAttempts(s.cfg.MaxAttempts),
		crawl.WithVisitedSet(s.cfg.VisitedSet),
		crawl.WithSkipFailedSubpages(s.cfg.SkipFailedSubpages),
	)
}

func (s *scraper) reportWriter(output io.Writer) report.Writer {
	switch {
	case s.cfg.JSONReport && s.envelope:
		return report.NewEnvelopeWriter(output, getVersion(), report.WithPrettyPrint())
	case s.cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case s.cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(s.cfg.Verbose))
	}
}

// save stores rec when a database is open.
func (s *scraper) save(ctx context.Context, db *store.HistoryDB, rec *model.PageRecord, p plan) error {
	if db == nil {
		return nil
	}
	run, err := db.Save(ctx, rec, p.depth, p.mode.String())
	if err != nil {
		return err
	}
	s.logger.Info("run saved", "id", run.ID, "url", run.SourceURL)
	fmt.Fprintf(s.stderr, "Saved run %s\n", run.ID)
	return nil
}

// createReportFile creates path, owner-readable only, and its parent
// directories.
func createReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided report path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
