// Package fetch retrieves external script and stylesheet text for the
// transform pipeline.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/microfront/hoist/internal/logging"
	"github.com/microfront/hoist/internal/resilience"
)

// Options tunes the client.
type Options struct {
	Timeout    time.Duration
	RetryMax   int
	RetryWait  time.Duration
	UserAgent  string
	RatePerSec float64 // 0 means unlimited
	Logger     *logging.Logger
}

// DefaultOptions returns settings suitable for asset hosts.
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		RetryMax:  3,
		RetryWait: 1 * time.Second,
		UserAgent: "hoist-fetch/1.0",
	}
}

// Client wraps resty with retries, rate limiting, and a circuit breaker.
// Its Text method satisfies the pipeline's FetchFunc.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewClient creates a production-ready fetch client.
func NewClient(opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWait
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "*/*").
		SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec))
	}

	// DefaultTripPolicy applies: asset hosts vary in reliability, trip
	// on sustained failure only.
	breaker := resilience.New("resource-fetch", resilience.Settings{
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
	}).WithLogger(opts.Logger)

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
	}
}

// Text fetches the body of the URL as text.
func (c *Client) Text(ctx context.Context, url string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.resty.R().SetContext(ctx).Get(url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
		}
		return resp.String(), nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Breaker exposes the underlying circuit breaker for observation.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}
