// Package selector asks a language model which search results are worth
// extracting data from, and recovers a URL list from whatever it answers.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/orchid/internal/llm"
	"github.com/FranksOps/orchid/internal/serp"
)

// MaxURLs is how many URLs the model is asked to return. Longer answers are
// passed through unchanged.
const MaxURLs = 3

// Selector picks extraction targets from search results.
type Selector struct {
	llm    llm.Completer
	logger *slog.Logger
}

// New returns a Selector backed by c.
func New(c llm.Completer, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{llm: c, logger: logger}
}

type candidate struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Select returns the URLs the model judged most relevant for objective,
// in the model's order. It never fails: an unreachable model or an
// unusable answer both yield an empty slice.
func (s *Selector) Select(ctx context.Context, company, objective string, results []serp.Result) []string {
	candidates := make([]candidate, 0, len(results))
	for _, r := range results {
		if r.Link == "" {
			continue
		}
		candidates = append(candidates, candidate(r))
	}

	s.logger.Info("analyzing search results", "count", len(candidates))
	if len(candidates) == 0 {
		s.logger.Warn("no search results to analyze")
		return []string{}
	}

	prompt, err := buildPrompt(company, objective, candidates)
	if err != nil {
		s.logger.Error("failed to build selection prompt", "err", err)
		return []string{}
	}

	answer, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error("url selection request failed", "err", err)
		return []string{}
	}
	s.logger.Debug("selection answer", "raw", answer)

	urls := Parse(answer)
	if len(urls) == 0 {
		s.logger.Warn("no valid URLs found in selection answer")
		return urls
	}
	s.logger.Info("selected URLs for extraction", "urls", urls)
	return urls
}

func buildPrompt(company, objective string, candidates []candidate) (string, error) {
	listing, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode candidates: %w", err)
	}

	var b strings.Builder
	b.WriteString("Task: Select the most relevant URLs from search results, prioritizing official sources.\n\n")
	b.WriteString("Instructions:\n")
	b.WriteString("1. PRIORITIZE official company websites, documentation, and press releases first\n")
	b.WriteString("2. Select ONLY URLs that directly contain information about the requested topic\n")
	b.WriteString("3. Return ONLY a JSON object with the following structure: {\"selected_urls\": [\"url1\", \"url2\"]}\n")
	b.WriteString("4. Do not include social media links (Twitter, LinkedIn, Facebook, etc.)\n")
	b.WriteString("5. Exclude any LinkedIn URLs as they cannot be accessed\n")
	fmt.Fprintf(&b, "6. Select a MAXIMUM of %d most relevant URLs\n", MaxURLs)
	b.WriteString("7. Order URLs by relevance: official sources first, then trusted news/industry sources\n")
	b.WriteString("8. IMPORTANT: Only output the JSON object, no other text or explanation\n\n")
	fmt.Fprintf(&b, "Company: %s\n", company)
	fmt.Fprintf(&b, "Information Needed: %s\n", objective)
	fmt.Fprintf(&b, "Search Results: %s\n\n", listing)
	b.WriteString("Response Format: {\"selected_urls\": [\"https://example.com\", \"https://example2.com\"]}\n\n")
	fmt.Fprintf(&b, "Remember: Prioritize OFFICIAL sources and limit to %d MOST RELEVANT URLs only.", MaxURLs)
	return b.String(), nil
}
