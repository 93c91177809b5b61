// Package scrape retrieves the raw HTML of a page for the cloner, either
// through a Firecrawl instance or by fetching it directly.
package scrape

import (
	"context"
	"errors"
)

var (
	// ErrEmptyPage means the backend answered but returned no HTML.
	ErrEmptyPage = errors.New("scrape returned no html")
	// ErrBlocked means a bot-protection challenge was served instead of
	// the page.
	ErrBlocked = errors.New("blocked by bot protection")
	// ErrDisallowed means robots.txt forbids fetching the URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// Scraper returns the raw HTML for a URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}
