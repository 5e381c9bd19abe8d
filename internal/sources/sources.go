package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/ratelimit"
)

// Adapter produces candidates from one external source.
type Adapter interface {
	Name() string
	// Fetch returns what it could collect. A non-nil *FetchError means the
	// source as a whole was unreachable; individual bad entries are skipped.
	Fetch(ctx context.Context, window time.Duration) ([]news.Candidate, error)
}

// FetchError reports that a whole source could not be reached.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchResult is the outcome of one adapter run.
type FetchResult struct {
	Adapter string
	Items   []news.Candidate
	Err     error
	Skipped bool // not started, or cancelled, because enough candidates had arrived
	Elapsed time.Duration
}

// Unavailable reports whether the adapter could not reach its source at all.
func (r FetchResult) Unavailable() bool { return r.Err != nil }

// HTTPClient allows injecting a custom transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures an HTTP-backed adapter.
type Option func(*httpSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPClient) Option {
	return func(s *httpSource) { s.client = c }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(s *httpSource) { s.baseURL = u }
}

// WithLimiter paces requests through l.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *httpSource) { s.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *httpSource) { s.log = l }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *httpSource) { s.timeout = d }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(s *httpSource) { s.userAgent = ua }
}

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "newscurator/1.0"
	maxBodyBytes     = 8 << 20
)

type httpSource struct {
	client    HTTPClient
	baseURL   string
	limiter   *ratelimit.Limiter
	log       *slog.Logger
	timeout   time.Duration
	userAgent string
	header    http.Header // sent with every request, e.g. credentials
}

func newHTTPSource(baseURL string, opts []Option) httpSource {
	s := httpSource{
		client:    &http.Client{},
		baseURL:   baseURL,
		log:       slog.Default(),
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// get performs a paced GET with its own timeout and returns the body.
func (s *httpSource) get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = s.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Host)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func (s *httpSource) getJSON(ctx context.Context, url string, timeout time.Duration, v any) error {
	body, err := s.get(ctx, url, timeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}
