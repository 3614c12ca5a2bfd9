package relay

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/nao1215/pagelens/internal/fetch"
	"github.com/nao1215/pagelens/internal/identity"
	"github.com/nao1215/pagelens/internal/metrics"
	"github.com/nao1215/pagelens/internal/model"
)

// Routes served by the relay.
const (
	ProxyRoute   = fetch.RelayPath
	ScrapeRoute  = "/api/scrape"
	HealthRoute  = "/healthz"
	MetricsRoute = "/metrics"
)

// DefaultRate is the number of requests per second allowed per target host.
const DefaultRate = 1

const shutdownTimeout = 5 * time.Second

// Scraper turns a URL into a page record.
type Scraper interface {
	Crawl(ctx context.Context, rawURL string, depth int) (*model.PageRecord, error)
}

// Server is the relay HTTP server.
type Server struct {
	engine  *gin.Engine
	fetcher fetch.Fetcher
	pool    *identity.Pool
	scraper Scraper
	limiter *hostLimiter
	metrics *metrics.Metrics
	logger  *slog.Logger
	intn    func(n int) int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics counts requests and serves the registry on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRateLimit sets the per-host request rate and burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.limiter = newHostLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRandom sets the source used to pick identities. intn must return
// a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Server) {
		s.intn = intn
	}
}

// New returns a relay that fetches through fetcher with identities from
// pool, and scrapes through scraper.
func New(fetcher fetch.Fetcher, pool *identity.Pool, scraper Scraper, opts ...Option) *Server {
	s := &Server{
		fetcher: fetcher,
		pool:    pool,
		scraper: scraper,
		limiter: newHostLimiter(rate.Limit(DefaultRate), 1),
		intn:    rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.observe())
	engine.GET(ProxyRoute, s.handleProxy)
	engine.POST(ScrapeRoute, s.handleScrape)
	engine.GET(HealthRoute, s.handleHealth)
	engine.GET(MetricsRoute, gin.WrapH(s.metrics.Handler()))
	s.engine = engine
	return s
}

// Handler returns the HTTP handler of the relay.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("relay listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("relay stopped")
	return nil
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.IncRelay(route, strconv.Itoa(status))
		s.logger.Debug("relay request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"elapsed", time.Since(start),
		)
	}
}
