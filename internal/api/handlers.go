package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FranksOps/orchid/internal/metrics"
	"github.com/FranksOps/orchid/internal/scrape"
)

const welcomeMessage = "Welcome to the Website Cloning API"

// Failure details returned when a stage yields nothing.
const (
	detailScrapeEmpty   = "Failed to scrape the website."
	detailSimplifyEmpty = "Failed to simplify the scraped HTML."
	detailGenerateEmpty = "Failed to generate HTML from source."
)

// PageGenerator rebuilds a page from simplified HTML. It always returns a
// document, possibly an error page.
type PageGenerator interface {
	Generate(ctx context.Context, sourceHTML, originalURL string) string
}

// SimplifyFunc shrinks scraped HTML before generation.
type SimplifyFunc func(src string) (string, error)

// CloneRequest is the body of POST /clone.
type CloneRequest struct {
	URL string `json:"url" binding:"required"`
}

// CloneResponse is the success body of POST /clone.
type CloneResponse struct {
	HTML string `json:"html"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

// cloneHandler scrapes the requested URL, simplifies the HTML and asks the
// generator for a static clone. Any stage failure is a 500 with a detail.
func cloneHandler(scraper scrape.Scraper, simplify SimplifyFunc, gen PageGenerator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CloneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: err.Error()})
			return
		}

		fail := func(detail string) {
			metrics.CloneRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			logger.Error("clone failed", "request_id", c.GetString("request_id"), "url", req.URL, "detail", detail)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: detail})
		}
		ctx := c.Request.Context()

		start := time.Now()
		source, err := scraper.Scrape(ctx, req.URL)
		metrics.ObserveStage("scrape", start)
		switch {
		case errors.Is(err, scrape.ErrEmptyPage), err == nil && source == "":
			fail(detailScrapeEmpty)
			return
		case err != nil:
			fail(err.Error())
			return
		}

		start = time.Now()
		simplified, err := simplify(source)
		metrics.ObserveStage("simplify", start)
		if err != nil {
			fail(err.Error())
			return
		}
		if simplified == "" {
			fail(detailSimplifyEmpty)
			return
		}
		metrics.RecordSimplify(len(source), len(simplified))
		logger.Debug("simplified page", "url", req.URL, "in", len(source), "out", len(simplified))

		start = time.Now()
		out := gen.Generate(ctx, simplified, req.URL)
		metrics.ObserveStage("generate", start)
		if out == "" {
			fail(detailGenerateEmpty)
			return
		}

		metrics.CloneRequestsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		c.JSON(http.StatusOK, CloneResponse{HTML: out})
	}
}
