// Package postgrest implements the generic data provider over a PostgREST
// API, plus the typed stores the services consume. All calls run through a
// circuit breaker, retry with backoff, and a bulkhead.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/resilience"
)

var tracer = otel.Tracer("postgrest")

// Client wraps HTTP calls to a PostgREST endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a PostgREST client.
func NewClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 50
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(maxConc),
		cfg:        cfg,
		logger:     logger,
	}
}

// do executes one authenticated request with breaker + retry + bulkhead.
// A nil body means no payload; the response body is returned raw.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "postgrest."+method)
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	var out []byte
	err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
		res, err := c.cb.Execute(func() (any, error) {
			return c.doOnce(ctx, method, path, payload)
		})
		if err != nil {
			return err
		}
		out, _ = res.([]byte)
		return nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &domain.ErrCircuitOpen{Service: "postgrest"}
		}
		return nil, err
	}
	return out, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload any) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("postgrest: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &domain.ErrExternalService{Service: "postgrest", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest", Err: err}
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("postgrest: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(raw)),
		)
		return nil, &domain.ErrExternalService{
			Service: "postgrest",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)),
		}
	}

	c.logger.Debug("postgrest: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return raw, nil
}
