package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/FranksOps/orchid/pkg/httpclient"
)

const maxRobotsBytes = 512 * 1024

// RobotsAuditor answers whether a URL may be fetched according to its
// host's robots.txt. Files are fetched once per scheme and host and cached
// for the auditor's lifetime. Hosts whose robots.txt is missing or
// unreadable are treated as allowing everything.
type RobotsAuditor struct {
	client *httpclient.Client
	logger *slog.Logger
	mu     sync.Mutex
	cache  map[string]*robotstxt.RobotsData
}

// NewRobotsAuditor returns an auditor fetching robots.txt through client.
func NewRobotsAuditor(client *httpclient.Client, logger *slog.Logger) *RobotsAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsAuditor{
		client: client,
		logger: logger,
		cache:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether userAgent may fetch targetURL.
func (r *RobotsAuditor) Allowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	data := r.lookup(ctx, u.Scheme+"://"+u.Host, userAgent)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.FindGroup(userAgent).Test(path), nil
}

func (r *RobotsAuditor) lookup(ctx context.Context, origin, userAgent string) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[origin]; ok {
		return data
	}

	data, err := r.fetch(ctx, origin, userAgent)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing", "origin", origin, "err", err)
	}
	r.cache[origin] = data
	return data
}

func (r *RobotsAuditor) fetch(ctx context.Context, origin, userAgent string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
