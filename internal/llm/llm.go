// Package llm wraps the chat-completion backends behind a single
// prompt-in, text-out interface.
package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrNotConfigured is returned by Unavailable when a backend could not be
// built, typically because its API key is missing.
var ErrNotConfigured = errors.New("llm: backend not configured")

// Completer sends one user prompt and returns the model's text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Unavailable is a Completer that always fails. It stands in for a backend
// that could not be constructed so callers degrade instead of aborting.
type Unavailable struct {
	Err error
}

func (u Unavailable) Complete(context.Context, string) (string, error) {
	if u.Err != nil {
		return "", errors.Join(ErrNotConfigured, u.Err)
	}
	return "", ErrNotConfigured
}

var fenceOpen = regexp.MustCompile("^```[A-Za-z0-9_-]*")

// StripCodeFence removes a surrounding Markdown code fence, with or without
// a language tag, and trims the result. A lone trailing fence is dropped too.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceOpen.ReplaceAllString(s, "")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	} else {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
