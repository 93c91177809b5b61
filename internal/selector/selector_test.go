package selector

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/FranksOps/orchid/internal/serp"
)

type fakeCompleter struct {
	answer string
	err    error
	calls  int
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.answer, f.err
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
	}{
		{
			name:   "plain object",
			answer: `{"selected_urls": ["https://acme.example/", "https://acme.example/about/*", "http://news.example/acme"]}`,
			want:   []string{"https://acme.example", "https://acme.example/about", "http://news.example/acme"},
		},
		{
			name:   "object inside prose",
			answer: "Here you go:\n{\"selected_urls\": [\"https://a.example\", \"https://b.example/\"]}\nHope that helps.",
			want:   []string{"https://a.example", "https://b.example"},
		},
		{
			name:   "fenced json",
			answer: "```json\n{\"selected_urls\": [\"https://a.example\"]}\n```",
			want:   []string{"https://a.example"},
		},
		{
			name:   "fenced without tag",
			answer: "```\n{\"selected_urls\": [\"https://a.example/\"]}\n```",
			want:   []string{"https://a.example"},
		},
		{
			name:   "more than three kept",
			answer: `{"selected_urls": ["https://1.example", "https://2.example", "https://3.example", "https://4.example"]}`,
			want:   []string{"https://1.example", "https://2.example", "https://3.example", "https://4.example"},
		},
		{
			name:   "only trailing wildcard stripped",
			answer: `{"selected_urls": ["https://a.example/*/x", "https://a.example/docs/*", "https://a.example/blog/*/"]}`,
			want:   []string{"https://a.example/*/x", "https://a.example/docs", "https://a.example/blog"},
		},
		{
			name:   "json without key",
			answer: `{"urls": ["https://a.example"]}`,
			want:   []string{},
		},
		{
			name:   "url lines fallback",
			answer: "I picked these:\nhttps://a.example/\n - not a url\n  http://b.example/path/*\nftp://c.example",
			want:   []string{"https://a.example", "http://b.example/path"},
		},
		{
			name:   "url lines inside fence",
			answer: "```\nhttps://a.example\nhttps://b.example\n```",
			want:   []string{"https://a.example", "https://b.example"},
		},
		{
			name:   "malformed object falls back to lines",
			answer: "{\"selected_urls\": [\"https://a.example\",\nhttps://b.example\n",
			want:   []string{"https://b.example"},
		},
		{
			name:   "non http entries dropped",
			answer: `{"selected_urls": ["", "   ", "/", "mailto:x@y.example", "https://ok.example"]}`,
			want:   []string{"https://ok.example"},
		},
		{
			name:   "nothing usable",
			answer: "Sorry, I cannot help with that.",
			want:   []string{},
		},
		{
			name:   "empty answer",
			answer: "",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.answer)
			if got == nil {
				t.Fatal("Parse must never return nil")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	fc := &fakeCompleter{answer: `{"selected_urls": ["https://acme.example/"]}`}
	s := New(fc, nil)

	results := []serp.Result{
		{Title: "Acme", Link: "https://acme.example", Snippet: "Official"},
		{Title: "No link"},
		{Title: "LinkedIn", Link: "https://linkedin.com/company/acme"},
	}

	got := s.Select(context.Background(), "Acme", "funding history", results)
	if !reflect.DeepEqual(got, []string{"https://acme.example"}) {
		t.Fatalf("unexpected selection %v", got)
	}
	if fc.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", fc.calls)
	}
	for _, want := range []string{"Company: Acme", "Information Needed: funding history", "https://acme.example", "MAXIMUM of 3"} {
		if !strings.Contains(fc.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(fc.prompt, "No link") {
		t.Error("results without a link should not be sent to the model")
	}
}

func TestSelect_NoCandidates(t *testing.T) {
	fc := &fakeCompleter{answer: `{"selected_urls": ["https://a.example"]}`}
	s := New(fc, nil)

	got := s.Select(context.Background(), "Acme", "x", []serp.Result{{Title: "no link"}})
	if len(got) != 0 {
		t.Errorf("expected empty selection, got %v", got)
	}
	if fc.calls != 0 {
		t.Errorf("model should not be called without candidates, got %d calls", fc.calls)
	}
}

func TestSelect_ModelError(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("connection refused")}
	s := New(fc, nil)

	got := s.Select(context.Background(), "Acme", "x", []serp.Result{{Link: "https://a.example"}})
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil selection, got %#v", got)
	}
}
