package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/orchid/internal/metrics"
	"github.com/FranksOps/orchid/pkg/httpclient"
)

const defaultFirecrawlHost = "http://localhost:3002"

// FirecrawlConfig configures a Firecrawl scraper.
type FirecrawlConfig struct {
	Host    string // default http://localhost:3002
	APIKey  string // optional; self-hosted instances usually run without one
	Timeout time.Duration
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Firecrawl scrapes pages through Firecrawl's v0 scrape endpoint.
type Firecrawl struct {
	client *httpclient.Client
	host   string
	apiKey string
	logger *slog.Logger
}

// NewFirecrawl returns a Scraper backed by the Firecrawl instance at cfg.Host.
func NewFirecrawl(cfg FirecrawlConfig) *Firecrawl {
	if cfg.Host == "" {
		cfg.Host = defaultFirecrawlHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Firecrawl{
		client: httpclient.New(httpclient.Config{Timeout: cfg.Timeout, Transport: cfg.Transport}),
		host:   strings.TrimRight(cfg.Host, "/"),
		apiKey: cfg.APIKey,
		logger: cfg.Logger,
	}
}

type pageOptions struct {
	OnlyMainContent bool `json:"onlyMainContent"`
	IncludeHTML     bool `json:"includeHtml"`
}

type firecrawlScrapeRequest struct {
	URL         string      `json:"url"`
	PageOptions pageOptions `json:"pageOptions"`
}

type firecrawlScrapeResponse struct {
	Data struct {
		HTML string `json:"html"`
	} `json:"data"`
}

// Scrape asks Firecrawl for the full page HTML, not just the main content.
func (f *Firecrawl) Scrape(ctx context.Context, url string) (string, error) {
	var resp firecrawlScrapeResponse
	err := f.client.DoJSON(ctx, http.MethodPost, f.host+"/v0/scrape", httpclient.Bearer(f.apiKey),
		firecrawlScrapeRequest{URL: url, PageOptions: pageOptions{OnlyMainContent: false, IncludeHTML: true}}, &resp)
	metrics.RecordUpstream("firecrawl_scrape", err)
	if err != nil {
		f.logger.Error("firecrawl scrape failed", "url", url, "err", err)
		return "", fmt.Errorf("firecrawl scrape %s: %w", url, err)
	}
	if resp.Data.HTML == "" {
		return "", ErrEmptyPage
	}

	f.logger.Debug("scraped page", "url", url, "bytes", len(resp.Data.HTML))
	return resp.Data.HTML, nil
}
