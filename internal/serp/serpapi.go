package serp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/orchid/internal/metrics"
	"github.com/FranksOps/orchid/pkg/httpclient"
)

const defaultSerpAPIBase = "https://serpapi.com"

// SerpAPI queries Google through serpapi.com's search.json endpoint.
type SerpAPI struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// SerpAPIConfig configures a SerpAPI provider.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewSerpAPI returns a Provider backed by SerpAPI.
func NewSerpAPI(cfg SerpAPIConfig) *SerpAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSerpAPIBase
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SerpAPI{
		client:  httpclient.New(httpclient.Config{Timeout: cfg.Timeout, Transport: cfg.Transport}),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  cfg.Logger,
	}
}

type serpAPIResponse struct {
	OrganicResults []Result `json:"organic_results"`
	Error          string   `json:"error"`
}

// Search returns the organic results for query in rank order. A response
// that carries no organic results, including SerpAPI's "no results" error
// message, yields an empty slice.
func (s *SerpAPI) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %d", limit)
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	if limit > 0 {
		params.Set("num", strconv.Itoa(limit))
	}
	endpoint := s.baseURL + "/search.json"

	params.Set("api_key", s.apiKey)
	var resp serpAPIResponse
	err := s.client.DoJSON(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil, nil, &resp)
	metrics.RecordUpstream("serpapi", err)
	if err != nil {
		// keep the key out of logs and error strings
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			se.URL = endpoint
		}
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = endpoint
		}
		return nil, fmt.Errorf("serpapi search %q: %w", query, err)
	}

	if resp.Error != "" && len(resp.OrganicResults) == 0 {
		s.logger.Warn("serpapi returned no results", "query", query, "reason", resp.Error)
		return []Result{}, nil
	}

	results := resp.OrganicResults
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
