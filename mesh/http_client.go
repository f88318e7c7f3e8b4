package mesh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultFetchTimeout is the default HTTP request timeout for report fetches.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of attempts.
	DefaultMaxRetries = 3

	defaultBaseBackoff = 500 * time.Millisecond

	// maxReportBytes caps a fetched report at 8 MB.
	maxReportBytes = 8 << 20
)

// FetchOption configures FetchReport.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

func defaultFetchConfig() fetchConfig {
	return fetchConfig{
		timeout:     DefaultFetchTimeout,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.timeout = d
	}
}

// WithMaxRetries sets the maximum number of attempts.
func WithMaxRetries(n int) FetchOption {
	return func(c *fetchConfig) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the base delay for exponential backoff between attempts.
func WithBaseBackoff(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.baseBackoff = d
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(c *fetchConfig) {
		c.client = client
	}
}

// IsRemoteReport reports whether source names an http(s) URL rather than a file.
func IsRemoteReport(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// LoadReport reads a scanner report from a local path or an http(s) URL.
func LoadReport(ctx context.Context, source string, opts ...FetchOption) ([]*Scanner, error) {
	if IsRemoteReport(source) {
		return FetchReport(ctx, source, opts...)
	}
	return ParseScannerFile(source)
}

// FetchReport downloads and parses a scanner report. Transport failures and
// 5xx responses are retried with exponential backoff; parse errors and 4xx
// responses are not.
func FetchReport(ctx context.Context, reportURL string, opts ...FetchOption) ([]*Scanner, error) {
	if reportURL == "" {
		return nil, fmt.Errorf("fetch report: URL is empty")
	}

	cfg := defaultFetchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxRetries < 1 {
		cfg.maxRetries = 1
	}

	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	var lastErr error
	for attempt := range cfg.maxRetries {
		if attempt > 0 {
			backoff := cfg.baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch report: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		body, err := doFetch(ctx, client, reportURL)
		if err != nil {
			var statusErr *httpStatusError
			if errors.As(err, &statusErr) && statusErr.code < 500 {
				return nil, fmt.Errorf("fetch report: %w", err)
			}
			if errors.Is(err, ErrReportTooLarge) {
				return nil, fmt.Errorf("fetch report: %w", err)
			}
			lastErr = err
			continue
		}

		scanners, err := ParseScanners(body)
		if err != nil {
			return nil, fmt.Errorf("fetch report %s: %w", reportURL, err)
		}
		return scanners, nil
	}

	return nil, fmt.Errorf("fetch report: all %d attempts failed: %w", cfg.maxRetries, lastErr)
}

type httpStatusError struct {
	url  string
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP GET %s: status %d", e.url, e.code)
}

// doFetch performs a single HTTP GET and returns the response body.
func doFetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{url: url, code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	if len(body) > maxReportBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrReportTooLarge, url, maxReportBytes)
	}
	return body, nil
}
