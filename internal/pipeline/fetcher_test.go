package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/sprstat/internal/model"
)

func testInput(maxBytes int64) model.InputConfig {
	return model.InputConfig{Timeout: 5 * time.Second, UserAgent: "test-agent", MaxBytes: maxBytes}
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetch_LocalFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "spr.csv")
	if err := os.WriteFile(p, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fetcher := NewFetcher(testInput(1<<20), nil)
	result, err := fetcher.Fetch(context.Background(), p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Name != "spr.csv" {
		t.Errorf("Expected name spr.csv, got %s", result.Name)
	}
	if string(result.Data) != "a,b\n1,2\n" {
		t.Errorf("Unexpected data: %q", result.Data)
	}
}

func TestFetch_LocalFileTooLarge(t *testing.T) {
	p := filepath.Join(t.TempDir(), "spr.csv")
	if err := os.WriteFile(p, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	fetcher := NewFetcher(testInput(10), nil)
	_, err := fetcher.Fetch(context.Background(), p)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = fmt.Fprint(w, "a,b\n")
	}))
	defer server.Close()

	fetcher := NewFetcher(testInput(1<<20), nil)
	result, err := fetcher.Fetch(context.Background(), server.URL+"/data/results")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(result.Data) != "a,b\n" {
		t.Errorf("Unexpected data: %q", result.Data)
	}
	if result.Name != "results.csv" {
		t.Errorf("Expected name results.csv, got %s", result.Name)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testInput(1<<20), nil)
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL+"/spr.xlsx")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(result.Data) != "OK" {
		t.Errorf("Unexpected data: %q", result.Data)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testInput(1<<20), nil)
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testInput(1<<20), nil)
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != fetchAttempts {
		t.Errorf("Expected %d attempts, got %d", fetchAttempts, attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testInput(1<<20), nil)
	if _, err := fetcher.FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &StatusError{Code: 503}, true},
		{"500", &StatusError{Code: 500}, true},
		{"429", &StatusError{Code: 429}, true},
		{"wrapped 502", fmt.Errorf("download: %w", &StatusError{Code: 502}), true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"network", fmt.Errorf("fetch: connection refused"), true},
		{"request", fmt.Errorf("create request: invalid URL"), false},
		{"body", fmt.Errorf("read body: unexpected EOF"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestDatasetName(t *testing.T) {
	tests := []struct {
		raw, contentType, want string
	}{
		{"https://lab.example/exports/spr.xlsx", "", "spr.xlsx"},
		{"https://lab.example/exports/latest", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "latest.xlsx"},
		{"https://lab.example/exports/latest/", "text/csv; charset=utf-8", "latest.csv"},
		{"https://lab.example", "", "lab.example"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := datasetName(u, tt.contentType); got != tt.want {
			t.Errorf("datasetName(%s) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
