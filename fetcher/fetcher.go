// Package fetcher is the HTTP side of scraping: request headers, timeouts,
// status handling, listing-page retries and the politeness delay.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pevans/coinfeed/logger"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("unexpected status code")

const maxBodyBytes = 10 << 20

// DefaultUserAgent mimics a desktop browser; the site serves reduced markup
// to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds fetcher settings.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	// ArticleDelay is the pause between the end of one article fetch and
	// the start of the next.
	ArticleDelay time.Duration
	// PageDelay is the same pause for listing pages.
	PageDelay time.Duration
	// ListingAttempts caps attempts per listing page, including the first.
	ListingAttempts int
	RetryInterval   time.Duration
}

// DefaultConfig returns the stock fetcher settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		UserAgent:       DefaultUserAgent,
		ArticleDelay:    2 * time.Second,
		PageDelay:       1 * time.Second,
		ListingAttempts: 3,
		RetryInterval:   500 * time.Millisecond,
	}
}

// Client fetches pages one at a time.
type Client struct {
	http         *http.Client
	cfg          Config
	articlePacer *pacer
	listingPacer *pacer
	log          logger.Logger
}

// New creates a client. A nil logger discards output.
func New(cfg Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.ListingAttempts < 1 {
		cfg.ListingAttempts = 1
	}

	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		cfg:          cfg,
		articlePacer: newPacer(cfg.ArticleDelay),
		listingPacer: newPacer(cfg.PageDelay),
		log:          log.With(logger.String("component", "fetcher")),
	}
}

// pacer holds each request back until interval has passed since the
// previous one finished. The first request goes out immediately.
type pacer struct {
	interval time.Duration

	mu      sync.Mutex
	limiter *rate.Limiter
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{
		interval: interval,
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
}

func (p *pacer) wait(ctx context.Context) error {
	p.mu.Lock()
	limiter := p.limiter
	p.mu.Unlock()
	return limiter.Wait(ctx)
}

// done starts a fresh one-token bucket drained at the finish time, so the
// next token is available exactly interval later.
func (p *pacer) done() {
	if p.interval <= 0 {
		return
	}
	now := time.Now()
	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	limiter.ReserveN(now, 1)

	p.mu.Lock()
	p.limiter = limiter
	p.mu.Unlock()
}

// FetchArticle waits out the politeness delay and makes a single attempt.
// Article failures are not retried within a run.
func (c *Client) FetchArticle(ctx context.Context, url string) ([]byte, error) {
	if err := c.articlePacer.wait(ctx); err != nil {
		return nil, err
	}
	defer c.articlePacer.done()
	return c.Fetch(ctx, url)
}

// FetchListing waits out the listing-page delay and retries transient
// failures with exponential backoff.
func (c *Client) FetchListing(ctx context.Context, url string) ([]byte, error) {
	if err := c.listingPacer.wait(ctx); err != nil {
		return nil, err
	}
	defer c.listingPacer.done()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.ListingAttempts-1)), ctx)

	var body []byte
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		body, err = c.Fetch(ctx, url)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		c.log.Warn("Listing fetch failed",
			logger.String("url", url),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		return err
	}, policy)
	if err != nil {
		return nil, err
	}

	return body, nil
}

// Fetch performs one GET and returns the body decoded to UTF-8. Non-2xx
// responses are errors.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", url, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	return body, nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.URL, e.Code)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// IsRetryable reports whether a fetch error is worth another attempt.
// Client errors other than 408 and 429 are permanent; everything else
// (server errors, timeouts, connection failures) is retried.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusRequestTimeout, statusErr.Code == http.StatusTooManyRequests:
			return true
		case statusErr.Code >= 400 && statusErr.Code < 500:
			return false
		}
	}

	return true
}
