package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/FranksOps/orchid/internal/extract"
	"github.com/FranksOps/orchid/internal/report"
	"github.com/FranksOps/orchid/internal/serp"
)

type mockSERP struct {
	results []serp.Result
	err     error
	query   string
}

func (m *mockSERP) Search(_ context.Context, query string, _ int) ([]serp.Result, error) {
	m.query = query
	return m.results, m.err
}

type mockSelector struct {
	urls  []string
	calls int
}

func (m *mockSelector) Select(context.Context, string, string, []serp.Result) []string {
	m.calls++
	return m.urls
}

type mockExtractor struct {
	res    extract.Result
	err    error
	prompt string
	urls   []string
}

func (m *mockExtractor) Extract(_ context.Context, urls []string, prompt string) (extract.Result, error) {
	m.urls = urls
	m.prompt = prompt
	return m.res, m.err
}

func TestResearch_Run(t *testing.T) {
	search := &mockSERP{results: []serp.Result{{Title: "Acme", Link: "https://acme.example"}}}
	sel := &mockSelector{urls: []string{"https://acme.example"}}
	ext := &mockExtractor{res: extract.Result{JobID: "job-1", Attempts: 3, Data: json.RawMessage(`{"ceo":"Jane"}`)}}

	var stages []Stage
	r := &Research{Search: search, Selector: sel, Extractor: ext, OnStage: func(s Stage) { stages = append(stages, s) }}

	sum, err := r.Run(context.Background(), "Acme", "Who is the CEO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if search.query != "Acme" {
		t.Errorf("expected search for the company name, got %q", search.query)
	}
	if ext.prompt != "Who is the CEO for Acme" {
		t.Errorf("unexpected extraction prompt %q", ext.prompt)
	}
	if !reflect.DeepEqual(stages, []Stage{StageSearch, StageSelect, StageExtract}) {
		t.Errorf("unexpected stages %v", stages)
	}
	if sum.Outcome != report.OutcomeSuccess || sum.JobID != "job-1" || sum.Attempts != 3 || sum.Results != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if string(sum.Data) != `{"ceo":"Jane"}` {
		t.Errorf("unexpected data %s", sum.Data)
	}
}

func TestResearch_Run_EarlyExits(t *testing.T) {
	t.Run("search error", func(t *testing.T) {
		r := &Research{Search: &mockSERP{err: errors.New("401")}, Selector: &mockSelector{}, Extractor: &mockExtractor{}}
		sum, err := r.Run(context.Background(), "Acme", "x")
		if err == nil || sum.Outcome != report.OutcomeError {
			t.Fatalf("expected search error, got %v (%s)", err, sum.Outcome)
		}
	})

	t.Run("no results", func(t *testing.T) {
		sel := &mockSelector{}
		r := &Research{Search: &mockSERP{}, Selector: sel, Extractor: &mockExtractor{}}
		sum, err := r.Run(context.Background(), "Acme", "x")
		if !errors.Is(err, ErrNoResults) || sum.Outcome != report.OutcomeNoResults {
			t.Fatalf("expected ErrNoResults, got %v (%s)", err, sum.Outcome)
		}
		if sel.calls != 0 {
			t.Error("selector should not run without results")
		}
	})

	t.Run("no urls", func(t *testing.T) {
		ext := &mockExtractor{}
		r := &Research{
			Search:    &mockSERP{results: []serp.Result{{Link: "https://a.example"}}},
			Selector:  &mockSelector{},
			Extractor: ext,
		}
		sum, err := r.Run(context.Background(), "Acme", "x")
		if !errors.Is(err, ErrNoURLs) || sum.Outcome != report.OutcomeNoURLs {
			t.Fatalf("expected ErrNoURLs, got %v (%s)", err, sum.Outcome)
		}
		if ext.urls != nil {
			t.Error("extractor should not run without urls")
		}
	})

	t.Run("missing component", func(t *testing.T) {
		sum, err := (&Research{}).Run(context.Background(), "Acme", "x")
		if err == nil || sum == nil {
			t.Fatal("expected error and a summary")
		}
	})
}

func TestResearch_Run_ExtractionOutcomes(t *testing.T) {
	tests := []struct {
		err  error
		want report.Outcome
	}{
		{fmt.Errorf("%w: job-1 still pending", extract.ErrPollTimeout), report.OutcomeTimeout},
		{fmt.Errorf("%w: quota", extract.ErrJobFailed), report.OutcomeFailed},
		{errors.New("connection reset"), report.OutcomeError},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			r := &Research{
				Search:    &mockSERP{results: []serp.Result{{Link: "https://a.example"}}},
				Selector:  &mockSelector{urls: []string{"https://a.example"}},
				Extractor: &mockExtractor{res: extract.Result{JobID: "job-1", Attempts: 120}, err: tt.err},
			}
			sum, err := r.Run(context.Background(), "Acme", "x")
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			if sum.Outcome != tt.want || sum.Attempts != 120 || sum.Error == "" {
				t.Errorf("unexpected summary %+v", sum)
			}
		})
	}
}
