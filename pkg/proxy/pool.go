// Package proxy rotates outgoing requests across a set of forward proxies
// and benches the ones that keep failing.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

type ctxKey struct{}

type entry struct {
	url      *url.URL
	failures int
	benched  time.Time
}

// Config tunes failure handling. Zero values take the defaults noted.
type Config struct {
	// MaxFailures benches a proxy after this many failures in a row. Default 3.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out. Default 5m.
	Cooldown time.Duration
}

// Pool hands out proxies round-robin, skipping benched ones.
type Pool struct {
	mu          sync.Mutex
	entries     []*entry
	next        int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// New parses raw proxy URLs. Entries without a scheme are taken as http.
// Blank entries and entries starting with '#' are skipped.
func New(raw []string, cfg Config) (*Pool, error) {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}

	p := &Pool{maxFailures: cfg.MaxFailures, cooldown: cfg.Cooldown, now: time.Now}
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" || strings.HasPrefix(r, "#") {
			continue
		}
		if !strings.Contains(r, "://") {
			r = "http://" + r
		}
		u, err := url.Parse(r)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", r)
		}
		p.entries = append(p.entries, &entry{url: u})
	}
	return p, nil
}

// Len returns the number of configured proxies, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next usable proxy, or nil when the pool is empty or
// every proxy is benched.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.entries {
		e := p.entries[p.next]
		p.next = (p.next + 1) % len(p.entries)

		if !e.benched.IsZero() && now.After(e.benched) {
			e.benched = time.Time{}
			e.failures = 0
		}
		if e.benched.IsZero() {
			return e.url
		}
	}
	return nil
}

// Report records the outcome of a request sent through u. A success clears
// the failure streak.
func (p *Pool) Report(u *url.URL, err error) {
	if u == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.url.String() != u.String() {
			continue
		}
		if err == nil {
			e.failures = 0
			return
		}
		e.failures++
		if e.failures >= p.maxFailures {
			e.benched = p.now().Add(p.cooldown)
		}
		return
	}
}

// WithProxy returns a context that routes requests through u when the
// transport uses FromRequest as its Proxy func.
func WithProxy(ctx context.Context, u *url.URL) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromRequest is an http.Transport Proxy func that honours WithProxy and
// otherwise connects directly.
func FromRequest(req *http.Request) (*url.URL, error) {
	u, _ := req.Context().Value(ctxKey{}).(*url.URL)
	return u, nil
}
