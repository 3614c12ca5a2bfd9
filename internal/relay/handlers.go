package relay

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pagelens/internal/fetch"
)

func errorJSON(c *gin.Context, status int, msg string, err error) {
	env := fetch.ErrorEnvelope{Error: msg}
	if err != nil {
		env.Details = err.Error()
	}
	c.JSON(status, env)
}

func (s *Server) handleProxy(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		errorJSON(c, http.StatusBadRequest, "Missing URL parameter", nil)
		return
	}
	target, err := fetch.ParseTarget(raw)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid URL provided", nil)
		return
	}
	if !s.limiter.Allow(target.Host) {
		errorJSON(c, http.StatusTooManyRequests, "Too Many Requests", nil)
		return
	}

	id := s.pool.Random(s.intn)
	body, err := s.fetcher.FetchHTML(c.Request.Context(), target.String(), id)
	if err != nil {
		s.logger.Warn("relay fetch failed", "url", target.String(), "identity", id.String(), "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch the URL", err)
		return
	}

	h := c.Writer.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

type scrapeRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleScrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid request", err)
		return
	}
	if req.URL == "" {
		errorJSON(c, http.StatusBadRequest, "URL is required", nil)
		return
	}

	rec, err := s.scraper.Crawl(c.Request.Context(), req.URL, 0)
	if err != nil {
		if !errors.Is(err, fetch.ErrInvalidInput) {
			s.logger.Warn("scrape failed", "url", req.URL, "error", err)
		}
		errorJSON(c, http.StatusInternalServerError, "Failed to scrape page", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
