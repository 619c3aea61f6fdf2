// Package dashapi is the HTTP client for the dashboard API.
package dashapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "studiodash/internal/log"
	"studiodash/internal/normalize"
)

const defaultTimeout = 15 * time.Second

// maxBody caps a single endpoint response.
const maxBody = 8 << 20

var (
	// ErrStatus is returned for any non-2xx response.
	ErrStatus = errors.New("dashapi: unexpected status")
	// ErrDecode is returned when a response body is not JSON at all.
	ErrDecode = errors.New("dashapi: invalid json")
)

// Client talks to the four read-only dashboard endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL. A zero timeout selects the default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewWithHTTPClient creates a client with a custom transport.
// Intended for tests and local stubs.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	c := New(baseURL, 0)
	c.httpClient = hc
	return c
}

// BaseURL reports the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Filters calls GET /api/filters and returns the unwrapped filters array.
func (c *Client) Filters(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, "/api/filters", "")
	if err != nil {
		return nil, err
	}
	return field(body, "filters"), nil
}

// Metrics calls GET /api/metrics. The body is the metrics object itself.
func (c *Client) Metrics(ctx context.Context, student string) (json.RawMessage, error) {
	return c.get(ctx, "/api/metrics", student)
}

// Subscriptions calls GET /api/subscriptions and unwraps the array.
func (c *Client) Subscriptions(ctx context.Context, student string) (json.RawMessage, error) {
	body, err := c.get(ctx, "/api/subscriptions", student)
	if err != nil {
		return nil, err
	}
	return field(body, "subscriptions"), nil
}

// Calendar calls GET /api/calendar and unwraps the events array.
func (c *Client) Calendar(ctx context.Context, student string) (json.RawMessage, error) {
	body, err := c.get(ctx, "/api/calendar", student)
	if err != nil {
		return nil, err
	}
	return field(body, "events"), nil
}

// Fetch requests all four endpoints concurrently. It is all-or-nothing:
// the first failure cancels the others and is returned alone, and no
// partial payload is handed back.
func (c *Client) Fetch(ctx context.Context, student string) (normalize.Payload, error) {
	var p normalize.Payload
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		p.Filters, err = c.Filters(gctx)
		return err
	})
	g.Go(func() (err error) {
		p.Metrics, err = c.Metrics(gctx, student)
		return err
	})
	g.Go(func() (err error) {
		p.Subscriptions, err = c.Subscriptions(gctx, student)
		return err
	})
	g.Go(func() (err error) {
		p.Calendar, err = c.Calendar(gctx, student)
		return err
	})

	if err := g.Wait(); err != nil {
		return normalize.Payload{}, err
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, path, student string) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if student != "" {
		endpoint += "?" + url.Values{"student": {student}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dashapi: build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dashapi: call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("dashapi: read %s: %w", path, err)
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s", ErrDecode, path)
	}

	appLog.Debug("dashapi fetch ok", "path", path, "bytes", len(body))
	return body, nil
}

// field unwraps one key of an envelope object. A body that is not an
// object, or lacks the key, yields nil and is left to the normalizer's
// defaults.
func field(body json.RawMessage, key string) json.RawMessage {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	return env[key]
}
