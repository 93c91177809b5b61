package serp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FranksOps/orchid/pkg/httpclient"
)

func TestSerpAPI_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("engine") != "google" || q.Get("q") != "Acme Corp" || q.Get("api_key") != "serp-key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"search_metadata": {"status": "Success"},
			"organic_results": [
				{"position": 1, "title": "Acme", "link": "https://acme.example", "snippet": "Official site"},
				{"position": 2, "title": "Acme News", "link": "https://news.example/acme", "snippet": "Coverage"},
				{"position": 3, "title": "Acme Wiki", "link": "https://wiki.example/Acme", "snippet": ""}
			]
		}`))
	}))
	defer ts.Close()

	p := NewSerpAPI(SerpAPIConfig{APIKey: "serp-key", BaseURL: ts.URL})

	results, err := p.Search(context.Background(), "Acme Corp", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Link != "https://acme.example" || results[0].Title != "Acme" || results[0].Snippet != "Official site" {
		t.Errorf("unexpected first result %+v", results[0])
	}

	limited, err := p.Search(context.Background(), "Acme Corp", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit to cap results at 2, got %d", len(limited))
	}
}

func TestSerpAPI_NoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": "Google hasn't returned any results for this query."}`))
	}))
	defer ts.Close()

	p := NewSerpAPI(SerpAPIConfig{APIKey: "k", BaseURL: ts.URL})
	results, err := p.Search(context.Background(), "zzzz", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSerpAPI_StatusErrorHidesKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Invalid API key."}`))
	}))
	defer ts.Close()

	p := NewSerpAPI(SerpAPIConfig{APIKey: "super-secret", BaseURL: ts.URL})
	_, err := p.Search(context.Background(), "Acme", 0)
	if err == nil {
		t.Fatal("expected error")
	}

	var se *httpclient.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if strings.Contains(err.Error(), "super-secret") {
		t.Errorf("api key leaked into error: %v", err)
	}
}

func TestSerpAPI_NegativeLimit(t *testing.T) {
	p := NewSerpAPI(SerpAPIConfig{})
	if _, err := p.Search(context.Background(), "x", -1); err == nil {
		t.Fatal("expected error for negative limit")
	}
}
