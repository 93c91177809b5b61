// Package extract drives Firecrawl's asynchronous extraction jobs: submit
// a set of URLs with a prompt, then poll the job until it yields data,
// fails, or runs out of attempts.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/orchid/internal/metrics"
	"github.com/FranksOps/orchid/pkg/httpclient"
	"github.com/FranksOps/orchid/pkg/pacer"
)

var (
	// ErrRejected means the submit call was answered but not accepted.
	ErrRejected = errors.New("extraction request rejected")
	// ErrNoJobID means the submit call was accepted without a job id.
	ErrNoJobID = errors.New("extraction response carried no job id")
	// ErrJobFailed means the job reported failure while being polled.
	ErrJobFailed = errors.New("extraction job failed")
	// ErrPollTimeout means the attempt budget ran out while the job was
	// still pending.
	ErrPollTimeout = errors.New("extraction did not complete in time")
)

// State is the observed state of a job after one poll.
type State string

const (
	StatePending  State = "pending"
	StateComplete State = "complete"
	StateFailed   State = "failed"
	StateError    State = "error" // transport, status or decode failure
)

const (
	defaultBaseURL     = "https://api.firecrawl.dev"
	defaultTimeout     = 120 * time.Second
	defaultPollTimeout = 30 * time.Second
	defaultMaxAttempts = 120
	progressEvery      = 6
)

// Config configures a Client. Zero values take the defaults noted per field.
type Config struct {
	APIKey  string
	BaseURL string // default https://api.firecrawl.dev
	// Timeout bounds the submit call. Default 120s.
	Timeout time.Duration
	// PollInterval is the constant gap between polls. Zero polls back to back.
	PollInterval time.Duration
	// MaxAttempts caps the number of polls. Default 120.
	MaxAttempts int
	// PollTimeout bounds each poll call. Default 30s.
	PollTimeout time.Duration
	Transport   http.RoundTripper
	Logger      *slog.Logger
	// OnPoll, if set, is called after every poll with its outcome.
	OnPoll func(attempt int, state State)
}

// Client talks to the extraction API.
type Client struct {
	http        *httpclient.Client
	baseURL     string
	apiKey      string
	interval    time.Duration
	maxAttempts int
	pollTimeout time.Duration
	logger      *slog.Logger
	onPoll      func(int, State)
}

// New returns a Client for cfg.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		http:        httpclient.New(httpclient.Config{Timeout: cfg.Timeout, Transport: cfg.Transport}),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		interval:    cfg.PollInterval,
		maxAttempts: cfg.MaxAttempts,
		pollTimeout: cfg.PollTimeout,
		logger:      cfg.Logger,
		onPoll:      cfg.OnPoll,
	}
}

// Result describes a finished or abandoned job. Data is set only when the
// job completed.
type Result struct {
	JobID    string          `json:"job_id"`
	Attempts int             `json:"attempts"`
	Data     json.RawMessage `json:"data,omitempty"`
}

type submitRequest struct {
	URLs            []string `json:"urls"`
	Prompt          string   `json:"prompt"`
	EnableWebSearch bool     `json:"enableWebSearch"`
}

type submitResponse struct {
	Success bool            `json:"success"`
	ID      string          `json:"id"`
	Error   json.RawMessage `json:"error"`
}

type statusResponse struct {
	Success bool            `json:"success"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// Extract submits urls with prompt and waits for the job to finish.
func (c *Client) Extract(ctx context.Context, urls []string, prompt string) (Result, error) {
	id, err := c.Submit(ctx, urls, prompt)
	if err != nil {
		return Result{}, err
	}
	return c.Poll(ctx, id)
}

// Submit starts an extraction job and returns its id. Web search is always
// enabled so the backend may follow links beyond urls.
func (c *Client) Submit(ctx context.Context, urls []string, prompt string) (string, error) {
	if len(urls) == 0 {
		return "", errors.New("extract: no urls to submit")
	}

	var resp submitResponse
	err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/extract", httpclient.Bearer(c.apiKey),
		submitRequest{URLs: urls, Prompt: prompt, EnableWebSearch: true}, &resp)
	metrics.RecordUpstream("firecrawl_extract", err)
	if err != nil {
		return "", fmt.Errorf("submit extraction: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("%w: %s", ErrRejected, errorText(resp.Error))
	}
	if resp.ID == "" {
		return "", ErrNoJobID
	}

	c.logger.Info("extraction submitted", "job_id", resp.ID, "urls", len(urls))
	return resp.ID, nil
}

// Poll checks job id until it completes, fails or MaxAttempts polls have
// been spent, pausing PollInterval between polls and never after the last
// one. Transport and decode errors end polling at once. The returned Result
// reports the attempts made even when err is non-nil.
func (c *Client) Poll(ctx context.Context, id string) (Result, error) {
	res := Result{JobID: id}
	pace := pacer.Every(c.interval)
	defer pace.Stop()

	c.logger.Info("waiting for extraction to complete", "job_id", id, "max_attempts", c.maxAttempts, "interval", c.interval)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		res.Attempts = attempt

		st, err := c.pollOnce(ctx, id)
		state := classify(st, err)
		metrics.ExtractPollsTotal.WithLabelValues(string(state)).Inc()
		if c.onPoll != nil {
			c.onPoll(attempt, state)
		}

		switch state {
		case StateError:
			return res, fmt.Errorf("poll extraction %s (attempt %d/%d): %w", id, attempt, c.maxAttempts, err)
		case StateFailed:
			return res, fmt.Errorf("%w: %s", ErrJobFailed, failureText(st))
		case StateComplete:
			res.Data = st.Data
			c.logger.Info("extraction complete", "job_id", id, "attempts", attempt)
			return res, nil
		}

		if attempt%progressEvery == 0 {
			c.logger.Info("still processing", "job_id", id, "attempt", attempt, "max_attempts", c.maxAttempts)
		}
		if attempt == c.maxAttempts {
			break
		}
		if err := pace.Wait(ctx); err != nil {
			return res, fmt.Errorf("wait for extraction %s: %w", id, err)
		}
	}

	return res, fmt.Errorf("%w: job %s still pending after %d attempts", ErrPollTimeout, id, c.maxAttempts)
}

func (c *Client) pollOnce(ctx context.Context, id string) (statusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	var st statusResponse
	err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/v1/extract/"+url.PathEscape(id), httpclient.Bearer(c.apiKey), nil, &st)
	metrics.RecordUpstream("firecrawl_extract", err)
	return st, err
}

func classify(st statusResponse, err error) State {
	switch {
	case err != nil:
		return StateError
	case !st.Success:
		return StateFailed
	case strings.EqualFold(st.Status, "failed"), strings.EqualFold(st.Status, "cancelled"):
		return StateFailed
	case hasData(st.Data):
		return StateComplete
	default:
		return StatePending
	}
}

// hasData reports whether raw holds a value other than null, false, zero,
// or an empty string, object or array.
func hasData(raw json.RawMessage) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		return false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return true
	}
	switch buf.String() {
	case "null", "false", "0", `""`, "{}", "[]":
		return false
	}
	return true
}

func failureText(st statusResponse) string {
	if msg := errorText(st.Error); msg != "no error message" {
		return msg
	}
	if st.Status != "" {
		return "status " + st.Status
	}
	return "no error message"
}

func errorText(raw json.RawMessage) string {
	if !hasData(raw) {
		return "no error message"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
