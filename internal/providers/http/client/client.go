package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/tracing"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// ErrBodyTooLarge is returned when a relay response exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// StatusError reports a non-2xx relay response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Options configures the relay client.
type Options struct {
	// Timeout bounds each attempt, including the rate limiter wait.
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	// RateLimit caps outbound requests per second across all backends.
	// Zero or less means unlimited.
	RateLimit float64

	BreakerFailures uint32
	BreakerCooldown time.Duration
	OnStateChange   func(name string, from, to resilience.State)
}

// DefaultOptions returns the relay defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:         10 * time.Second,
		UserAgent:       "Mozilla/5.0 (compatible; Nebula/1.0)",
		MaxBodyBytes:    10 << 20,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Response is a fully read relay response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Check validates a response inside the breaker, so a relay that keeps
// answering with unusable bodies trips like one that keeps erroring.
type Check func(*Response) error

// Client fetches through relays. Each backend name gets its own breaker;
// the resty client, pooled transport and limiter are shared.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	opts    Options

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
}

// New creates a relay client. Retries are disabled: the caller moves on to
// the next backend instead.
func New(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = def.MaxBodyBytes
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = def.BreakerFailures
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = def.BreakerCooldown
	}

	// Pooled transport from retryablehttp; its retry loop is not used.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTransport(retryClient.HTTPClient.Transport).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		resty:    restyClient,
		limiter:  limiter,
		opts:     opts,
		breakers: make(map[string]*resilience.Breaker),
	}
}

// Breaker returns the breaker for a backend, creating it on first use.
func (c *Client) Breaker(name string) *resilience.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.breakers[name]; ok {
		return b
	}
	failures := c.opts.BreakerFailures
	b := resilience.New(name, resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     c.opts.BreakerCooldown,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: c.opts.OnStateChange,
	})
	c.breakers[name] = b
	return b
}

// Breakers returns a snapshot of every breaker, sorted by name.
func (c *Client) Breakers() []resilience.Snapshot {
	c.mu.Lock()
	names := make([]string, 0, len(c.breakers))
	for name := range c.breakers {
		names = append(names, name)
	}
	c.mu.Unlock()

	sort.Strings(names)
	out := make([]resilience.Snapshot, 0, len(names))
	for _, name := range names {
		out = append(out, c.Breaker(name).Snapshot())
	}
	return out
}

// Timeout returns the per-attempt timeout.
func (c *Client) Timeout() time.Duration {
	return c.opts.Timeout
}

// Get performs one attempt against a relay endpoint under the backend's
// breaker. The attempt deadline counts as a breaker failure; cancellation
// of ctx by the caller does not.
func (c *Client) Get(ctx context.Context, backend, endpoint string, check Check) (*Response, error) {
	var out *Response

	err := c.Breaker(backend).Execute(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		if err := c.limiter.Wait(attemptCtx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("rate limit: %w", err)
		}

		resp, err := c.do(attemptCtx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if check != nil {
			if err := check(resp); err != nil {
				return err
			}
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, endpoint string) (*Response, error) {
	req := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	tracing.Inject(ctx, req.Header)

	resp, err := req.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	raw := resp.RawBody()
	if raw == nil {
		return nil, fmt.Errorf("request failed: no response body")
	}
	defer raw.Close()

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(raw, 4096))
		return nil, &StatusError{Code: resp.StatusCode()}
	}

	body, err := io.ReadAll(io.LimitReader(raw, c.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.opts.MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}

	return &Response{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        body,
	}, nil
}
