// Package remote is the HTTP+JSON client of the hosted data store.
// The wire protocol is a records API: collections addressed by name,
// list with filter and sort expressions, token-authenticated writes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/pkg/retry"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 3
	perPage         = 200
)

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
}

func (c *Config) normalize() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultAttempts
	}
}

type statusError struct {
	code int
	body string
}

func (e statusError) Error() string {
	return fmt.Sprintf("remote store: status %d: %s", e.code, e.body)
}

// A Client talks to the records API. Safe for concurrent use.
type Client struct {
	baseURL  string
	hc       *http.Client
	attempts int

	mu      sync.RWMutex
	session domain.Session
	authFns []func(domain.Session)
}

func NewClient(cfg Config) (*Client, error) {
	const op = "remote.NewClient"

	cfg.normalize()
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid base url %q", op, cfg.BaseURL)
	}

	return &Client{
		baseURL:  u.String(),
		hc:       &http.Client{Timeout: cfg.Timeout},
		attempts: cfg.MaxAttempts,
	}, nil
}

// SetSession installs a previously persisted session token.
func (c *Client) SetSession(s domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

type listResponse struct {
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Items      []json.RawMessage `json:"items"`
}

// listAll walks every page of a filtered collection listing.
func (c *Client) listAll(
	ctx context.Context, collection, filter, sort string,
) ([]json.RawMessage, error) {
	var items []json.RawMessage

	for page := 1; ; page++ {
		q := url.Values{}
		if filter != "" {
			q.Set("filter", filter)
		}
		if sort != "" {
			q.Set("sort", sort)
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))

		var resp listResponse
		path := fmt.Sprintf(
			"/api/collections/%s/records?%s", collection, q.Encode(),
		)
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}

		items = append(items, resp.Items...)
		if resp.Page >= resp.TotalPages {
			return items, nil
		}
	}
}

func (c *Client) create(
	ctx context.Context, collection string, record any,
) error {
	path := fmt.Sprintf("/api/collections/%s/records", collection)
	return c.do(ctx, http.MethodPost, path, record, nil)
}

func (c *Client) update(
	ctx context.Context, collection, id string, partial any,
) error {
	path := fmt.Sprintf("/api/collections/%s/records/%s", collection, id)
	return c.do(ctx, http.MethodPatch, path, partial, nil)
}

func (c *Client) delete(ctx context.Context, collection, id string) error {
	path := fmt.Sprintf("/api/collections/%s/records/%s", collection, id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do issues one request with auth header and bounded retries on
// network errors and 5xx responses.
func (c *Client) do(
	ctx context.Context, method, path string, in, out any,
) error {
	const op = "remote.Client.do"

	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		body = b
	}

	rc := retry.Config{
		MaxAttempts: c.attempts,
		Backoff:     retry.ExponentialBackoff(100 * time.Millisecond),
		ShouldRetry: shouldRetry,
	}

	err := retry.Do(ctx, rc, func() error {
		return c.once(ctx, method, path, body, out)
	})
	if err != nil {
		var se statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) once(
	ctx context.Context, method, path string, body []byte, out any,
) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.session.Token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusError{code: resp.StatusCode, body: string(b)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func shouldRetry(err error) bool {
	var se statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return true // network error
}
