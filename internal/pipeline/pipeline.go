package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/orchid/internal/extract"
	"github.com/FranksOps/orchid/internal/metrics"
	"github.com/FranksOps/orchid/internal/report"
	"github.com/FranksOps/orchid/internal/serp"
)

var (
	// ErrNoResults means the search returned nothing to choose from.
	ErrNoResults = errors.New("no search results found")
	// ErrNoURLs means the selector picked no usable URL.
	ErrNoURLs = errors.New("no URLs were selected")
)

// Stage names a step of a research run.
type Stage string

const (
	StageSearch  Stage = "search"
	StageSelect  Stage = "select"
	StageExtract Stage = "extract"
)

// URLSelector picks extraction targets from search results.
type URLSelector interface {
	Select(ctx context.Context, company, objective string, results []serp.Result) []string
}

// Extractor runs an extraction job to completion.
type Extractor interface {
	Extract(ctx context.Context, urls []string, prompt string) (extract.Result, error)
}

// Research runs the company research stages in order: search for the
// company, let the selector choose URLs, then extract the objective from
// them.
type Research struct {
	Search      serp.Provider
	Selector    URLSelector
	Extractor   Extractor
	SearchLimit int
	Logger      *slog.Logger
	// OnStage, if set, is called as each stage starts.
	OnStage func(Stage)
}

// Run executes one research run. The returned Summary is never nil and
// describes how far the run got, including on error.
func (r *Research) Run(ctx context.Context, company, objective string) (*report.Summary, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sum := &report.Summary{
		Company:      company,
		Objective:    objective,
		Query:        company,
		SelectedURLs: []string{},
		StartTime:    time.Now().UTC(),
	}

	if r.Search == nil || r.Selector == nil || r.Extractor == nil {
		err := errors.New("research pipeline is missing a component")
		sum.Finish(report.OutcomeError, err)
		return sum, err
	}

	r.enter(StageSearch)
	logger.Info("searching", "query", sum.Query)
	start := time.Now()
	results, err := r.Search.Search(ctx, sum.Query, r.SearchLimit)
	metrics.ObserveStage(string(StageSearch), start)
	if err != nil {
		err = fmt.Errorf("search failed: %w", err)
		sum.Finish(report.OutcomeError, err)
		return sum, err
	}
	sum.Results = len(results)
	if len(results) == 0 {
		sum.Finish(report.OutcomeNoResults, ErrNoResults)
		return sum, ErrNoResults
	}

	r.enter(StageSelect)
	start = time.Now()
	urls := r.Selector.Select(ctx, company, objective, results)
	metrics.ObserveStage(string(StageSelect), start)
	if len(urls) == 0 {
		sum.Finish(report.OutcomeNoURLs, ErrNoURLs)
		return sum, ErrNoURLs
	}
	sum.SelectedURLs = urls

	r.enter(StageExtract)
	logger.Info("extracting structured data", "urls", len(urls))
	start = time.Now()
	res, err := r.Extractor.Extract(ctx, urls, objective+" for "+company)
	metrics.ObserveStage(string(StageExtract), start)
	sum.JobID = res.JobID
	sum.Attempts = res.Attempts
	if err != nil {
		sum.Finish(outcomeFor(err), err)
		return sum, err
	}

	sum.Data = res.Data
	sum.Finish(report.OutcomeSuccess, nil)
	return sum, nil
}

func (r *Research) enter(s Stage) {
	if r.OnStage != nil {
		r.OnStage(s)
	}
}

func outcomeFor(err error) report.Outcome {
	switch {
	case errors.Is(err, extract.ErrPollTimeout):
		return report.OutcomeTimeout
	case errors.Is(err, extract.ErrJobFailed):
		return report.OutcomeFailed
	default:
		return report.OutcomeError
	}
}
