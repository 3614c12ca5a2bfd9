package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nao1215/pagelens/internal/config"
	"github.com/nao1215/pagelens/internal/crawl"
	"github.com/nao1215/pagelens/internal/extract"
	"github.com/nao1215/pagelens/internal/metrics"
	"github.com/nao1215/pagelens/internal/relay"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the forwarding relay",
		Long: `Serve starts an HTTP relay that fetches pages on behalf of clients.

Endpoints:
  GET  /api/proxy?url=<absolute URL>   raw HTML of the page
  POST /api/scrape {"url": "..."}      extracted page as JSON
  GET  /healthz                        liveness
  GET  /metrics                        Prometheus metrics

Each target host is limited to --rate requests per second; requests over
the limit get 429. Point 'pagelens scrape --relay' or PAGELENS_RELAY_URL at
the relay to fetch through it.

Examples:
  pagelens serve
  pagelens serve --listen :9000 --rate 0.5 -p socks5://127.0.0.1:9050`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddr,
		"Address to listen on")
	cmd.Flags().Float64("rate", config.DefaultRelayRate,
		"Requests per second allowed per target host")
	addEgressFlags(cmd)

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The relay always fetches directly; chaining relays is not supported.
	eg, err := newEgress(ctx, cfg, logger, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer eg.Close()

	m := metrics.New()
	scraper := crawl.New(eg.fetcher,
		extract.New(extract.WithMode(extract.ModeContent), extract.WithLogger(logger)),
		eg.pool,
		crawl.WithLogger(logger),
		crawl.WithMetrics(m),
		crawl.WithMaxAttempts(cfg.MaxAttempts),
	)

	srv := relay.New(eg.fetcher, eg.pool, scraper,
		relay.WithLogger(logger),
		relay.WithMetrics(m),
		relay.WithRateLimit(cfg.RelayRate, 1),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "pagelens relay listening on %s\n", cfg.ListenAddr)
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}
