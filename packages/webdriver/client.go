package webdriver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections to the driver
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second

	scrollToTop = "window.scrollTo(0, 0);"
)

// ErrNoSession is returned when a call is made without a session id
var ErrNoSession = errors.New("no webdriver session")

// Error is a W3C WebDriver error response
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("webdriver returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("webdriver %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a client for the remote end at baseURL, e.g. http://localhost:4444
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
				IdleConnTimeout:     DefaultIdleConnTimeout,
			},
		}
	}

	return c
}

// Ready reports whether the remote end can create new sessions
func (c *Client) Ready(ctx context.Context) (bool, string, error) {
	value, err := c.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return false, "", err
	}
	return value.Get("ready").Bool(), value.Get("message").String(), nil
}

// Snapshot returns a PNG screenshot of the session's current top-level browsing context
func (c *Client) Snapshot(ctx context.Context, session string) ([]byte, error) {
	if session == "" {
		return nil, ErrNoSession
	}

	value, err := c.do(ctx, http.MethodGet, "/session/"+url.PathEscape(session)+"/screenshot", nil)
	if err != nil {
		return nil, err
	}
	if value.Type != gjson.String {
		return nil, fmt.Errorf("unexpected screenshot value: %s", value.Raw)
	}

	data, err := base64.StdEncoding.DecodeString(value.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return data, nil
}

// ResetView scrolls the page back to the top so screenshots show the same region
func (c *Client) ResetView(ctx context.Context, session string) error {
	_, err := c.ExecuteScript(ctx, session, scrollToTop)
	return err
}

// ExecuteScript runs script synchronously in the session and returns its result
func (c *Client) ExecuteScript(ctx context.Context, session, script string, args ...any) (gjson.Result, error) {
	if session == "" {
		return gjson.Result{}, ErrNoSession
	}
	if args == nil {
		args = []any{}
	}
	body := map[string]any{
		"script": script,
		"args":   args,
	}
	return c.do(ctx, http.MethodPost, "/session/"+url.PathEscape(session)+"/execute/sync", body)
}

// do performs a request and returns the "value" member of the response
func (c *Client) do(ctx context.Context, method, path string, body any) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("webdriver request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	value := gjson.GetBytes(data, "value")
	if resp.StatusCode != http.StatusOK {
		werr := &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		if value.IsObject() {
			werr.Code = value.Get("error").String()
			werr.Message = value.Get("message").String()
		}
		return gjson.Result{}, werr
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid webdriver response: %s", string(data))
	}
	return value, nil
}
