package acumatica

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"shipconf/internal/services"
)

const (
	loginPath  = "auth/login/"
	logoutPath = "auth/logout/"

	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
)

var validAuthStatuses = map[int]struct{}{
	http.StatusOK:        {},
	http.StatusCreated:   {},
	http.StatusNoContent: {},
}

// Credentials is the login body expected by the service.
type Credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Response is a fully read service response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient uses hc for requests. The client's cookie jar is replaced by
// the session jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			clone := *hc
			c.http = &clone
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// Client holds one cookie-backed session against the service base URL. It is
// not safe for concurrent use.
type Client struct {
	baseURL   string
	base      *url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

// NewClient constructs a session client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("acumatica: base URL required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("acumatica: parse base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("acumatica: unsupported base URL scheme %q", parsed.Scheme)
	}
	c := &Client{
		baseURL:   baseURL,
		base:      parsed,
		http:      &http.Client{},
		userAgent: "shipconf",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.http.Timeout = c.timeout
	}
	if err := c.resetSession(); err != nil {
		return nil, err
	}
	return c, nil
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login authenticates and keeps the issued session cookie for later calls.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	return c.authenticate(ctx, "login", loginPath, creds)
}

// Logout ends the session. Session state is discarded whatever the outcome.
func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	defer func() {
		_ = c.resetSession()
	}()
	return c.authenticate(ctx, "logout", logoutPath, creds)
}

// HasSession reports whether the client currently holds session cookies.
func (c *Client) HasSession() bool {
	return len(c.http.Jar.Cookies(c.base)) > 0
}

func (c *Client) authenticate(ctx context.Context, operation, path string, creds Credentials) error {
	resp, err := c.send(ctx, http.MethodPost, path, creds, nil)
	if err != nil {
		return err
	}
	if _, ok := validAuthStatuses[resp.StatusCode]; !ok {
		return &AuthError{Operation: operation, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return nil
}

// Submit issues one request against baseURL+relPath using the session cookie.
// A non-nil jsonBody wins over binaryBody. Network failures and statuses of
// 400 and above are transport errors; every other response is returned for the
// caller to interpret. No retries are attempted.
func (c *Client) Submit(ctx context.Context, method, relPath string, jsonBody any, binaryBody []byte) (*Response, error) {
	resp, err := c.send(ctx, method, relPath, jsonBody, binaryBody)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp, &StatusError{
			Method:     method,
			URL:        c.baseURL + relPath,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, relPath string, jsonBody any, binaryBody []byte) (*Response, error) {
	target := c.baseURL + strings.TrimLeft(relPath, "/")
	operation := method + " " + relPath

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case jsonBody != nil:
		payload, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, services.Wrap(services.ErrTransport, "acumatica", operation, "encode body", err)
		}
		body = bytes.NewReader(payload)
		contentType = contentTypeJSON
	case binaryBody != nil:
		body = bytes.NewReader(binaryBody)
		contentType = contentTypeBinary
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "acumatica", operation, "build request", err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "acumatica", operation, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "acumatica", operation, "read response", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) resetSession() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("acumatica: cookie jar: %w", err)
	}
	c.http.Jar = jar
	return nil
}
