// Package fetch ingests narratives over HTTP: robots-aware, per-host
// rate-limited retrieval with retry on transient failures, and HTML
// reduced to visible text. Local files and stdin bypass this package.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"plainview/internal/logging"
	"plainview/internal/model"
)

// ErrRobotsDisallowed marks a URL the site's robots.txt refuses.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// fetchSleepFunc is swapped out in tests to avoid real backoff waits.
var fetchSleepFunc = time.Sleep

const fetchAttempts = 3

// Result is one fetched narrative.
type Result struct {
	Narrative string
	FinalURL  string
	Meta      Meta
}

// Meta keeps the response details worth carrying into an audit trail.
type Meta struct {
	StatusCode   int
	ContentType  string
	LastModified string
	ETag         string
}

// Fetcher retrieves narrative text over HTTP.
type Fetcher struct {
	client        *http.Client
	userAgent     string
	maxBytes      int64
	respectRobots bool
	robots        *Robots
	limiter       *Limiter
	log           *slog.Logger
}

// New builds a Fetcher from config.
func New(cfg model.FetchConfig) *Fetcher {
	transport := &http.Transport{Proxy: proxyFunc(cfg.Proxy)}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:     cfg.UserAgent,
		maxBytes:      cfg.MaxBodyBytes,
		respectRobots: cfg.RespectRobots,
		robots:        NewRobots(cfg.UserAgent, cfg.Timeout),
		limiter:       NewLimiter(cfg.RateLimit, 5),
		log:           logging.New("fetch"),
	}
}

// Fetch retrieves one URL and reduces it to narrative text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	// 1. Robots check; any crawl delay the site requests is honored
	// together with the rate limit below.
	var crawlDelay time.Duration
	if f.respectRobots {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrRobotsDisallowed)
		}
		crawlDelay = delay
	}

	// 2. Per-host rate limit.
	if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	// 3. Request.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	meta := Meta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// 4. HTML reduces to visible text; anything else passes through.
	narrative := string(body)
	if strings.Contains(strings.ToLower(meta.ContentType), "html") {
		text, err := VisibleText(strings.NewReader(narrative))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		narrative = text
	}

	return &Result{
		Narrative: strings.TrimSpace(narrative),
		FinalURL:  resp.Request.URL.String(),
		Meta:      meta,
	}, nil
}

// FetchWithRetry retries transient failures (5xx, 429, connection
// resets) with a linear backoff. Permanent failures return immediately.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		res, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
		if attempt < fetchAttempts {
			f.log.Debug("retrying fetch", "url", rawURL, "attempt", attempt, "error", err)
			fetchSleepFunc(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}
	return nil, lastErr
}

// isRetryableFetchError distinguishes transient failures from permanent
// ones. Client errors other than 429 never retry.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"status: 429",
		"status: 500",
		"status: 502",
		"status: 503",
		"status: 504",
		"connection refused",
		"connection reset",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
