// Package hub is the HTTP client for the remote context hub.
//
// The context operations used during hydration and capture (FetchByFallbackID,
// FetchByIdentity, VerifyCode, IngestDrop, IsFirstTimeSender) never return
// errors: any transport failure, non-2xx status or malformed body is logged
// at warn level and reported as nil/false. The passthrough (Call) and agent
// drop operations return *errors.HubError values for their callers to render.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/opoerator/drophub/internal/errors"
)

// maxResponseBytes bounds every response body read.
const maxResponseBytes = 16 << 20

// errorExcerptChars bounds the body excerpt carried by UPSTREAM errors.
const errorExcerptChars = 500

// Client talks to the hub. Construct with New.
type Client struct {
	baseURL string
	apiKey  string
	userID  string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUserID sets the fallback account used by FetchByFallbackID.
func WithUserID(id string) Option {
	return func(c *Client) { c.userID = strings.TrimSpace(id) }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves the client without a timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger sets the logger for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for baseURL. The second result is false, and the
// client nil, unless both baseURL and apiKey are non-empty.
func New(baseURL, apiKey string, opts ...Option) (*Client, bool) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if baseURL == "" || apiKey == "" {
		return nil, false
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, true
}

// BaseURL returns the hub base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do issues one request and returns the (bounded) response body and status.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, errors.NewInvalidRequest(fmt.Sprintf("encode body: %v", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, errors.NewInvalidRequest(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, errors.NewUnavailable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, errors.NewUnavailable(err)
	}
	return data, resp.StatusCode, nil
}

// doJSON issues a request and decodes a 2xx JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	data, status, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		if status == http.StatusNotFound {
			return errors.NewNotFound(path)
		}
		return errors.NewUpstream(status, excerpt(data, errorExcerptChars))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewUpstream(status, fmt.Sprintf("malformed response: %v", err))
	}
	return nil
}

// excerpt returns at most n runes of data.
func excerpt(data []byte, n int) string {
	s := strings.TrimSpace(string(data))
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
