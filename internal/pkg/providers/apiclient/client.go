// Package apiclient is the small JSON-over-HTTP client shared by the
// provider packages. It throttles outbound calls and turns every non-2xx
// answer into *apperror.UpstreamError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
)

const maxBodyBytes = 2 << 20

// Client talks to one provider API.
type Client struct {
	service string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// New returns a client for service at baseURL. ratePerSec <= 0 disables
// throttling; httpClient may be nil.
func New(service, baseURL string, ratePerSec float64, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		burst := int(ratePerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		limiter: limiter,
	}
}

// Service returns the name used in errors and logs.
func (c *Client) Service() string {
	return c.service
}

// Do sends a request to path (relative to the base URL) and returns the raw
// body of a 2xx response. A non-nil payload is sent as JSON.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limiter: %w", c.service, err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", c.service, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.service, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperror.UpstreamError{Service: c.service, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// GetJSON fetches path with a bearer token and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path, accessToken string, out any) error {
	body, err := c.Do(ctx, http.MethodGet, path, map[string]string{"Authorization": "Bearer " + accessToken}, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.service, err)
	}
	return nil
}
