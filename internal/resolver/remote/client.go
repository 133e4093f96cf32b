// Package remote implements the boundary primitives against another
// exprbox instance's data plane, for deployments where the sandbox and
// the data owner run in separate processes.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/exprbox/exprbox/internal/boundary"
	"github.com/exprbox/exprbox/internal/infrastructure/resilience"
)

// Config defines the remote data plane connection.
type Config struct {
	// BaseURL is the peer's root URL, e.g. "http://data-owner:8700".
	BaseURL string
	// ExecutionID selects the snapshot on the peer.
	ExecutionID string
	// Token is the bearer token, if the peer requires auth.
	Token string
	// Timeout bounds each boundary call end to end.
	Timeout time.Duration
	// RetryMax is the per-call retry budget for transient failures.
	RetryMax int
	// RPS throttles outbound boundary calls (0 = unlimited).
	RPS float64
	// Burst is the throttle burst size.
	Burst int
}

// Client is a boundary.Calls implementation backed by HTTP. Transient
// failures retry with backoff; a persistently failing peer trips the
// circuit breaker so evaluations fail fast instead of piling up.
type Client struct {
	http    *resty.Client
	execID  string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// New builds a client for the given peer.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	// StandardClient wraps the retry loop in a RoundTripper, so resty sees
	// transient 5xx and network failures already retried away. 4xx data
	// errors pass through untouched.
	httpClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "exprbox-remote/1.0")
	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		http:    httpClient,
		execID:  cfg.ExecutionID,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, burst),
		breaker: resilience.New(resilience.Settings{
			Name:    "data-plane",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// ResolveValue implements boundary.Calls.
func (c *Client) ResolveValue(path boundary.Path) (any, error) {
	return c.call("resolve", boundary.ResolveRequest{Path: path})
}

// ResolveElement implements boundary.Calls.
func (c *Client) ResolveElement(path boundary.Path, index int) (any, error) {
	return c.call("element", boundary.ElementRequest{Path: path, Index: index})
}

// InvokeFunction implements boundary.Calls.
func (c *Client) InvokeFunction(path boundary.Path, args []any) (any, error) {
	return c.call("invoke", boundary.InvokeRequest{Path: path, Args: args})
}

// call runs one boundary request. Boundary calls are synchronous by
// contract, so blocking on the limiter here is the intended backpressure.
func (c *Client) call(op string, body any) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("boundary %s throttled: %w", op, err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, op, body)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			return nil, fmt.Errorf("boundary %s: data plane unavailable: %w", op, err)
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, op string, body any) (any, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/v1/executions/%s/data/%s", c.execID, op))
	if err != nil {
		return nil, fmt.Errorf("boundary %s: %w", op, err)
	}

	if resp.IsError() {
		var wireErr boundary.WireError
		if uerr := sonic.Unmarshal(resp.Body(), &wireErr); uerr == nil && wireErr.Error != "" {
			return nil, errors.New(wireErr.Error)
		}
		return nil, fmt.Errorf("boundary %s: status %d", op, resp.StatusCode())
	}

	out, err := boundary.UnmarshalResult(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("boundary %s: %w", op, err)
	}
	return out, nil
}
