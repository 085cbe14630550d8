package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/churn-cli/internal/resilience"
)

// maxErrorBody caps how much of a failed response is echoed into a message.
const maxErrorBody = 512

// Option configures the HTTP gateway.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit throttles outbound calls. A non-positive limit disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *httpClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithPaths overrides the route of individual endpoints.
func WithPaths(paths map[string]string) Option {
	return func(c *httpClient) {
		for name, path := range paths {
			if path == "" {
				continue
			}
			c.paths[Endpoint(name)] = path
		}
	}
}

type httpClient struct {
	baseURL string
	paths   map[Endpoint]string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a gateway that speaks JSON over HTTP to baseURL.
func NewClient(baseURL string, opts ...Option) Gateway {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   make(map[Endpoint]string, len(DefaultPaths)),
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for ep, path := range DefaultPaths {
		c.paths[ep] = path
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Call(ctx context.Context, endpoint Endpoint, payload any) (json.RawMessage, error) {
	path, ok := c.paths[endpoint]
	if !ok {
		return nil, &ServiceError{Endpoint: endpoint, Kind: KindRejection, Message: "unknown endpoint"}
	}

	if payload == nil {
		payload = struct{}{}
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint, Kind: KindTransport, Message: "encode request", Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ServiceError{Endpoint: endpoint, Kind: KindTransport, Message: err.Error(), Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint, Kind: KindTransport, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if resilience.IsTransient(err) {
			err = resilience.NewTransientError(err, 0)
		}
		zap.L().Debug("gateway: call failed",
			zap.String("endpoint", string(endpoint)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, &ServiceError{Endpoint: endpoint, Kind: KindTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{
			Endpoint:   endpoint,
			Kind:       KindTransport,
			StatusCode: resp.StatusCode,
			Message:    "read response body",
			Err:        err,
		}
	}

	zap.L().Debug("gateway: call complete",
		zap.String("endpoint", string(endpoint)),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{
			Endpoint:   endpoint,
			Kind:       KindRejection,
			StatusCode: resp.StatusCode,
			Message:    failureMessage(body, http.StatusText(resp.StatusCode)),
		}
	}

	if !gjson.ValidBytes(body) {
		return nil, &ServiceError{
			Endpoint:   endpoint,
			Kind:       KindRejection,
			StatusCode: resp.StatusCode,
			Message:    "response is not valid JSON",
		}
	}

	if flag := gjson.GetBytes(body, "success"); flag.Exists() && flag.Type == gjson.False {
		return nil, &ServiceError{
			Endpoint:   endpoint,
			Kind:       KindRejection,
			StatusCode: resp.StatusCode,
			Message:    failureMessage(body, "service reported failure"),
		}
	}

	return json.RawMessage(body), nil
}

// failureMessage pulls a human-readable reason out of a failed response.
func failureMessage(body []byte, fallback string) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"message", "error"} {
			if msg := gjson.GetBytes(body, key); msg.Type == gjson.String && msg.String() != "" {
				return msg.String()
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" || gjson.ValidBytes(body) {
		return fallback
	}
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return fallback + ": " + text
}
