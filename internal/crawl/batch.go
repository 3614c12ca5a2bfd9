package crawl

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pagelens/internal/model"
)

// DefaultSeedConcurrency is the number of seeds crawled at once.
const DefaultSeedConcurrency = 2

// SeedResult is the outcome of crawling one seed.
type SeedResult struct {
	URL    string
	Record *model.PageRecord
	Err    error
}

// CrawlAll crawls every seed with the given depth, running at most
// concurrency seeds at a time. Results are in seed order; a failing seed
// does not stop the others.
func (c *Crawler) CrawlAll(ctx context.Context, seeds []string, depth, concurrency int) []SeedResult {
	if concurrency <= 0 {
		concurrency = DefaultSeedConcurrency
	}

	c.logger.Info("starting batch crawl", "seeds", len(seeds), "concurrency", concurrency)
	start := time.Now()

	results := make([]SeedResult, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			results[i].URL = seed
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			rec, err := c.Crawl(gctx, seed, depth)
			results[i].Record = rec
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-seed errors are kept in results

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.logger.Info("batch crawl complete",
		"seeds", len(seeds),
		"failed", failed,
		"elapsed", time.Since(start),
	)
	return results
}
