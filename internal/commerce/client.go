// Package commerce is the client of the remote commerce API: activities, promos,
// carts, payment methods, transactions and image uploads. Every request carries
// the static API key; requests made through a client returned by WithToken also
// carry the visitor's bearer token.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_travel/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	apiKeyHeader   = "apiKey"
	defaultTimeout = 15 * time.Second
	maxBodySize    = 4 << 20
)

type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a single call including the rate limiter wait.
	Timeout time.Duration
	// RequestsPerSecond limits outgoing calls. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Breaker           *circuitbreaker.Breaker
}

type Client struct {
	baseURL    string
	apiKey     string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.Breaker
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		httpClient: httpClient,
		limiter:    limiter,
		breaker:    cfg.Breaker,
	}, nil
}

// WithToken returns a copy of c that authenticates as the token's owner. The
// copy shares the transport, limiter and breaker.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BreakerConfig returns breaker settings that do not count client errors
// (4xx other than 408 and 429) as upstream failures.
func BreakerConfig() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig()
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || IsClientError(err)
	}
	return cfg
}

type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("limiter.Wait: %w", err)
		}
	}

	return circuitbreaker.Execute(c.breaker, func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("http.NewRequest: %w", err)
		}
		req.Header.Set(apiKeyHeader, c.apiKey)
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("read %s %s: %w", method, path, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, newAPIError(resp.StatusCode, data)
		}
		return data, nil
	})
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any) ([]byte, error) {
	if in == nil {
		return c.do(ctx, method, path, nil, "")
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", path, err)
	}
	return c.do(ctx, method, path, body, "application/json")
}

// getData fetches path and decodes the envelope's data field.
func getData[T any](ctx context.Context, c *Client, path string) (T, error) {
	var zero T

	raw, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return zero, err
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("decode %s: %w", path, err)
	}
	return env.Data, nil
}
