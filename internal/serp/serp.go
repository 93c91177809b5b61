package serp

import "context"

// Result is one organic search result.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Provider abstracts a search backend returning ranked organic results for
// a query. limit caps the number of results; zero means the backend default.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}
