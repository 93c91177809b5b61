package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/orchid/internal/fingerprint"
	"github.com/FranksOps/orchid/internal/metrics"
	"github.com/FranksOps/orchid/pkg/httpclient"
	"github.com/FranksOps/orchid/pkg/pacer"
	"github.com/FranksOps/orchid/pkg/proxy"
	"github.com/FranksOps/orchid/pkg/useragent"
)

const maxPageBytes = 20 << 20

// DirectConfig configures the in-process scraper.
type DirectConfig struct {
	Timeout       time.Duration
	MaxRedirects  int
	Fingerprint   fingerprint.Profile
	UserAgents    []string
	RespectRobots bool
	// RPS caps outgoing page fetches per second; zero disables pacing.
	RPS float64
	// Proxies, if any, are rotated across page fetches.
	Proxies []string
	// Transport overrides the fingerprinted transport, mostly for tests.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Direct fetches pages itself instead of delegating to Firecrawl. It
// presents a browser TLS fingerprint and User-Agent, honours robots.txt
// when asked to, and recognises common bot-protection challenge pages.
type Direct struct {
	client *httpclient.Client
	agents *useragent.Pool
	pace   *pacer.Pacer
	robots *RobotsAuditor
	// nil when no proxies are configured
	proxies *proxy.Pool
	logger  *slog.Logger
}

// NewDirect builds a Direct scraper. Call Close when done with it.
func NewDirect(cfg DirectConfig) (*Direct, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var proxies *proxy.Pool
	if len(cfg.Proxies) > 0 {
		var err error
		if proxies, err = proxy.New(cfg.Proxies, proxy.Config{}); err != nil {
			return nil, err
		}
	}

	transport := cfg.Transport
	if transport == nil {
		var proxyFunc func(*http.Request) (*url.URL, error)
		if proxies != nil {
			proxyFunc = proxy.FromRequest
		}
		var err error
		transport, err = fingerprint.Transport(cfg.Fingerprint, proxyFunc)
		if err != nil {
			return nil, fmt.Errorf("failed to setup transport: %w", err)
		}
	}

	client := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
	})

	d := &Direct{
		client:  client,
		agents:  useragent.NewPool(cfg.UserAgents),
		pace:    pacer.PerSecond(cfg.RPS, 0.2),
		proxies: proxies,
		logger:  cfg.Logger,
	}
	if cfg.RespectRobots {
		d.robots = NewRobotsAuditor(client, cfg.Logger)
	}
	return d, nil
}

// Scrape GETs target and returns its body. Pages served with a bot
// challenge fail with ErrBlocked, robots.txt refusals with ErrDisallowed,
// and other 4xx/5xx answers with an *httpclient.StatusError.
func (d *Direct) Scrape(ctx context.Context, target string) (html string, err error) {
	defer func() { metrics.RecordUpstream("direct", err) }()

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid url %q", target)
	}

	ua := d.agents.Next()
	if d.robots != nil {
		allowed, err := d.robots.Allowed(ctx, target, ua)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", fmt.Errorf("%w: %s", ErrDisallowed, target)
		}
	}

	if err := d.pace.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	var via *url.URL
	if d.proxies != nil {
		if via = d.proxies.Next(); via != nil {
			req = req.WithContext(proxy.WithProxy(ctx, via))
		} else {
			d.logger.Warn("all proxies benched, fetching directly", "url", target)
		}
	}

	start := time.Now()
	resp, err := d.client.Do(req.Context(), req)
	if d.proxies != nil {
		d.proxies.Report(via, err)
	}
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	d.logger.Debug("fetched page", "url", target, "status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start))

	if vendor, ok := detectChallenge(resp.StatusCode, resp.Header, body); ok {
		d.logger.Warn("bot challenge detected", "url", target, "vendor", vendor, "status", resp.StatusCode)
		return "", fmt.Errorf("%w: %s challenge on %s", ErrBlocked, vendor, target)
	}
	if resp.StatusCode >= 400 {
		return "", &httpclient.StatusError{URL: target, StatusCode: resp.StatusCode}
	}
	if len(body) == 0 {
		return "", ErrEmptyPage
	}
	return string(body), nil
}

// Close stops the rate limiter.
func (d *Direct) Close() {
	d.pace.Stop()
}
