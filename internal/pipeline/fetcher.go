package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/sprstat/internal/model"
	"go.uber.org/zap"
)

const fetchAttempts = 3

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// ErrTooLarge is returned when a dataset exceeds the configured size limit
var ErrTooLarge = errors.New("dataset exceeds size limit")

// StatusError is a non-2xx response from a dataset server
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher reads dataset bytes from a local path or an http(s) URL
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *hostLimiter // nil when downloads are not throttled
	logger     *zap.Logger
}

// NewFetcher creates a Fetcher. MaxBytes <= 0 disables the size limit.
func NewFetcher(cfg model.InputConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *hostLimiter
	if cfg.RequestsPerSecond > 0 {
		limiter = newHostLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		limiter:   limiter,
		logger:    logger,
	}
}

// FetchResult is a dataset read into memory
type FetchResult struct {
	Name     string // File name used to pick the decoder
	Location string // Final path or URL
	Data     []byte
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch reads a dataset. Remote reads are retried on transient failures.
func (f *Fetcher) Fetch(ctx context.Context, location string) (*FetchResult, error) {
	if IsRemote(location) {
		return f.FetchWithRetry(ctx, location)
	}
	return f.readFile(location)
}

func (f *Fetcher) readFile(location string) (*FetchResult, error) {
	file, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	data, err := f.readLimited(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return &FetchResult{Name: filepath.Base(location), Location: location, Data: data}, nil
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

// FetchWithRetry downloads a dataset, retrying 5xx, 429 and network errors
// with linear backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		result, err := f.fetchURL(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || attempt == fetchAttempts {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		f.logger.Debug("retrying dataset download",
			zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Error(err))
		fetchSleepFunc(time.Duration(attempt) * time.Second)
	}
	return nil, lastErr
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	return &FetchResult{
		Name:     datasetName(resp.Request.URL, resp.Header.Get("Content-Type")),
		Location: finalURL,
		Data:     data,
	}, nil
}

// datasetName takes the last path segment, falling back to the content
// type when the URL carries no file extension
func datasetName(u *url.URL, contentType string) string {
	name := path.Base(strings.TrimSuffix(u.Path, "/"))
	if name == "." || name == "/" || name == "" {
		name = u.Host
	}
	if path.Ext(name) != "" {
		return name
	}
	switch {
	case strings.Contains(contentType, "spreadsheetml"):
		return name + ".xlsx"
	case strings.Contains(contentType, "text/csv"):
		return name + ".csv"
	}
	return name
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return strings.HasPrefix(err.Error(), "fetch: ")
}
