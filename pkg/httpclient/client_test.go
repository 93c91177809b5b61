package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := New(Config{Timeout: 10 * time.Millisecond})

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	_, err := client.Do(context.Background(), req)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_Redirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1":
			http.Redirect(w, r, "/2", http.StatusFound)
		case "/2":
			http.Redirect(w, r, "/3", http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	client := New(Config{MaxRedirects: 1})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	if _, err := client.Do(context.Background(), req); err == nil {
		t.Fatal("expected redirect limit error")
	}

	noRedir := New(Config{MaxRedirects: -1})
	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	resp, err := noRedir.Do(context.Background(), req2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302 StatusFound, got %d", resp.StatusCode)
	}
}

func TestClient_NilContext(t *testing.T) {
	client := New(Config{})
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	_, err := client.Do(nil, req)
	if err == nil || !strings.Contains(err.Error(), "context cannot be nil") {
		t.Errorf("expected nil context error, got %v", err)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer ts.Close()

	client := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := client.Do(ctx, req); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestDoJSON_RoundTrip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer header, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name":"orchid"}` {
			t.Errorf("unexpected body %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"greeting":"hello orchid"}`))
	}))
	defer ts.Close()

	client := New(Config{Timeout: 5 * time.Second})

	var out struct {
		Greeting string `json:"greeting"`
	}
	in := map[string]string{"name": "orchid"}
	if err := client.DoJSON(context.Background(), http.MethodPost, ts.URL, Bearer("secret"), in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Greeting != "hello orchid" {
		t.Errorf("expected greeting, got %q", out.Greeting)
	}
}

func TestDoJSON_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte("out of credits\n"))
	}))
	defer ts.Close()

	client := New(Config{})
	err := client.DoJSON(context.Background(), http.MethodGet, ts.URL, nil, nil, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d", statusErr.StatusCode)
	}
	if statusErr.Body != "out of credits" {
		t.Errorf("expected trimmed body, got %q", statusErr.Body)
	}
}

func TestDoJSON_DecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	client := New(Config{})
	var out map[string]any
	err := client.DoJSON(context.Background(), http.MethodGet, ts.URL, nil, nil, &out)
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestBearer_Empty(t *testing.T) {
	if h := Bearer(""); len(h) != 0 {
		t.Errorf("expected empty header, got %v", h)
	}
}
