// Package api is the mobile client's HTTP client for the orders, profile and
// settings API. Every request carries the session's bearer token; a 401 ends
// the session that sent it.
package api

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

	"github.com/rs/zerolog"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

const (
	defaultTimeout  = 15 * time.Second
	maxErrorBodyLen = 4 << 10
)

// Authorizer is the part of the session the client needs.
type Authorizer interface {
	AttachToken(req *http.Request) (string, error)
	Expire(ctx context.Context, token string) (bool, error)
}

// Error is a non-2xx response, or a 2xx response with success=false.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// envelope is the response shape of every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type Client struct {
	baseURL *url.URL
	authURL *url.URL
	http    *http.Client
	session Authorizer
	log     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAuthURL sends auth/login to a separate base URL.
func WithAuthURL(raw string) Option {
	return func(c *Client) {
		if u, err := parseBase(raw); err == nil {
			c.authURL = u
		} else {
			c.log.Warn().Err(err).Str("url", raw).Msg("ignoring invalid auth url")
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client rooted at baseURL.
func New(baseURL string, session Authorizer, opts ...Option) (*Client, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		authURL: base,
		http:    &http.Client{Timeout: defaultTimeout},
		session: session,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// parseBase ensures a trailing slash so relative paths resolve under it.
func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("api: base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	return c.doAt(ctx, c.baseURL, method, path, in, out, true)
}

// doAt performs one request. path is relative to base and already escaped.
// No retries: every failure is returned to the caller. Only a 401 on an
// authenticated request touches the session; public requests carry no token
// and leave the session alone.
func (c *Client) doAt(ctx context.Context, base *url.URL, method, path string, in, out any, authenticated bool) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, base.String()+path, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var token string
	if authenticated {
		if token, err = c.session.AttachToken(req); err != nil {
			return err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyLen))
		if !authenticated {
			return domain.ErrUnauthorized
		}
		if ended, err := c.session.Expire(ctx, token); err != nil {
			c.log.Error().Err(err).Msg("failed to end session after 401")
		} else if ended {
			c.log.Info().Str("path", path).Msg("token rejected, session ended")
		}
		return domain.ErrUnauthorized
	}

	var env envelope
	dec := json.NewDecoder(io.LimitReader(resp.Body, 16<<20))
	if err := dec.Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 300 {
			return &Error{Status: resp.StatusCode}
		}
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		return &Error{Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("api: decode %s %s data: %w", method, path, err)
		}
	}
	return nil
}
