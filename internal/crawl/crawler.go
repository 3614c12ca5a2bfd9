package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pagelens/internal/extract"
	"github.com/nao1215/pagelens/internal/fetch"
	"github.com/nao1215/pagelens/internal/identity"
	"github.com/nao1215/pagelens/internal/metrics"
	"github.com/nao1215/pagelens/internal/model"
	"github.com/nao1215/pagelens/internal/retry"
)

// BranchingFactor is the number of links followed per page.
const BranchingFactor = 5

// Crawler extracts a page and, with depth > 0, its linked pages.
// A Crawler is safe for concurrent use.
type Crawler struct {
	fetcher   fetch.Fetcher
	extractor *extract.Extractor
	pool      *identity.Pool
	logger    *slog.Logger
	metrics   *metrics.Metrics

	maxAttempts        int
	retryOpts          []retry.Option
	policy             *retry.Policy
	visitedSet         bool
	skipFailedSubpages bool
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithMetrics records fetch, rotation and extraction counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) {
		c.metrics = m
	}
}

// WithMaxAttempts sets the number of fetch attempts per page.
func WithMaxAttempts(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryOptions passes extra options to the retry policy, after the
// crawler's own.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(c *Crawler) {
		c.retryOpts = append(c.retryOpts, opts...)
	}
}

// WithVisitedSet fetches every URL at most once per crawl.
// This departs from the default behavior, which re-fetches cycles.
func WithVisitedSet(enabled bool) Option {
	return func(c *Crawler) {
		c.visitedSet = enabled
	}
}

// WithSkipFailedSubpages drops subpages whose crawl failed instead of
// failing the whole crawl.
func WithSkipFailedSubpages(enabled bool) Option {
	return func(c *Crawler) {
		c.skipFailedSubpages = enabled
	}
}

// New returns a Crawler that fetches with fetcher, draws identities from
// pool and builds records with extractor.
func New(fetcher fetch.Fetcher, extractor *extract.Extractor, pool *identity.Pool, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:     fetcher,
		extractor:   extractor,
		pool:        pool,
		maxAttempts: retry.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	policyOpts := []retry.Option{
		retry.WithMaxAttempts(c.maxAttempts),
		retry.WithRetryable(fetch.Retryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.logger.Warn("fetch failed, retrying with a new identity",
				"attempt", attempt,
				"max_attempts", c.maxAttempts,
				"delay", delay,
				"error", err,
			)
		}),
	}
	c.policy = retry.NewPolicy(append(policyOpts, c.retryOpts...)...)
	return c
}

// Crawl extracts rawURL and, when depth > 0, up to five of its links
// recursively. Invalid input is reported without any fetch; a page whose
// fetch attempts all fail yields an error wrapping *retry.ExhaustedRetriesError.
func (c *Crawler) Crawl(ctx context.Context, rawURL string, depth int) (*model.PageRecord, error) {
	if depth < 0 {
		return nil, &fetch.InvalidInputError{Input: rawURL, Reason: fmt.Sprintf("negative depth %d", depth)}
	}
	if _, err := fetch.ParseTarget(rawURL); err != nil {
		return nil, err
	}

	var visited *visitedURLs
	if c.visitedSet {
		visited = &visitedURLs{seen: make(map[string]struct{})}
		visited.add(rawURL)
	}

	start := time.Now()
	c.logger.Info("crawl started", "url", rawURL, "depth", depth)

	rec, err := c.crawl(ctx, rawURL, depth, c.pool.First(), visited)
	if err != nil {
		c.logger.Error("crawl failed", "url", rawURL, "error", err)
		return nil, err
	}

	c.logger.Info("crawl complete",
		"url", rawURL,
		"pages", rec.PageCount(),
		"elapsed", time.Since(start),
	)
	return rec, nil
}

func (c *Crawler) crawl(ctx context.Context, rawURL string, depth int, id identity.Identity, visited *visitedURLs) (*model.PageRecord, error) {
	rec, id, err := c.page(ctx, rawURL, id)
	if err != nil {
		return nil, err
	}
	if depth == 0 {
		return rec, nil
	}

	selected := rec.Links
	if len(selected) > BranchingFactor {
		selected = selected[:BranchingFactor]
	}
	if visited != nil {
		selected = visited.claim(selected)
	}

	subpages := make([]*model.PageRecord, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, link := range selected {
		g.Go(func() error {
			sub, err := c.crawl(gctx, link.URL, depth-1, id, visited)
			if err != nil {
				if c.skipFailedSubpages && !errors.Is(err, context.Canceled) {
					c.logger.Warn("skipping subpage", "url", link.URL, "parent", rawURL, "error", err)
					return nil
				}
				return fmt.Errorf("subpage %s: %w", link.URL, err)
			}
			subpages[i] = sub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rec.Subpages = make([]*model.PageRecord, 0, len(subpages))
	for _, sub := range subpages {
		if sub != nil {
			rec.Subpages = append(rec.Subpages, sub)
		}
	}
	return rec, nil
}

// page fetches and extracts one URL. It returns the identity of the
// successful attempt so that linked pages start from it.
func (c *Crawler) page(ctx context.Context, rawURL string, id identity.Identity) (*model.PageRecord, identity.Identity, error) {
	body, id, err := retry.DoWithState(ctx, c.policy, id, c.rotate,
		func(ctx context.Context, id identity.Identity) ([]byte, error) {
			start := time.Now()
			body, err := c.fetcher.FetchHTML(ctx, rawURL, id)
			c.metrics.ObserveFetch(outcome(err), time.Since(start).Seconds())
			if err != nil {
				c.logger.Debug("fetch attempt failed", "url", rawURL, "identity", id.String(), "error", err)
			}
			return body, err
		})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			c.metrics.IncFetchOutcome(metrics.OutcomeExhausted)
		}
		return nil, id, err
	}

	result, err := c.extractor.Extract(body, rawURL)
	if err != nil {
		return nil, id, err
	}
	for _, w := range result.Warnings {
		c.metrics.IncWarning(w.Category)
	}
	c.metrics.IncPage()
	c.logger.Debug("page extracted",
		"url", rawURL,
		"links", len(result.Record.Links),
		"headings", len(result.Record.Headings),
		"warnings", len(result.Warnings),
	)
	return result.Record, id, nil
}

func (c *Crawler) rotate(id identity.Identity) identity.Identity {
	c.metrics.IncRotation()
	return c.pool.Rotate(id)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case fetch.Retryable(err):
		return metrics.OutcomeRetryable
	default:
		return metrics.OutcomeFatal
	}
}

// visitedURLs is the optional per-crawl set of URLs already scheduled.
type visitedURLs struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (v *visitedURLs) add(u string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seen[u] = struct{}{}
}

// claim returns the links not yet scheduled and marks them as scheduled.
func (v *visitedURLs) claim(links []model.LinkRef) []model.LinkRef {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []model.LinkRef
	for _, l := range links {
		if _, ok := v.seen[l.URL]; ok {
			continue
		}
		v.seen[l.URL] = struct{}{}
		out = append(out, l)
	}
	return out
}
