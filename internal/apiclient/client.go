// Package apiclient is the authenticated REST client for the ORA Scrum API.
//
// Every call carries the current access token. A 401 triggers exactly one
// refresh through POST /auth/refresh followed by exactly one retry of the
// original call; a second 401 is returned to the caller as an *Error.
package apiclient

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

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	refreshPath    = "/auth/refresh"
	defaultTimeout = 30 * time.Second
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *tokenState
	log        zerolog.Logger

	refreshGroup singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithStorage(s Storage) Option {
	return func(c *Client) { c.tokens.storage = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     &tokenState{},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API origin the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ============================================
// Tokens
// ============================================

// LoadTokens reads persisted tokens into memory.
func (c *Client) LoadTokens(ctx context.Context) (Tokens, error) {
	return c.tokens.load(ctx)
}

// SetTokens stores both tokens in memory and in storage.
func (c *Client) SetTokens(ctx context.Context, t Tokens) error {
	return c.tokens.set(ctx, t)
}

// ClearTokens removes both tokens from memory and storage.
func (c *Client) ClearTokens(ctx context.Context) error {
	return c.tokens.clear(ctx)
}

func (c *Client) AccessToken() string {
	return c.tokens.get().AccessToken
}

func (c *Client) RefreshToken() string {
	return c.tokens.get().RefreshToken
}

func (c *Client) IsAuthenticated() bool {
	return c.AccessToken() != ""
}

// AccessTokenExpiry reads the exp claim of the access token. The signature is
// not verified; only the server can do that.
func (c *Client) AccessTokenExpiry() (time.Time, bool) {
	token := c.AccessToken()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// AccessTokenExpired reports whether the access token's exp claim is in the
// past. Tokens without an exp claim are treated as not expired.
func (c *Client) AccessTokenExpired(now time.Time) bool {
	exp, ok := c.AccessTokenExpiry()
	return ok && !now.Before(exp)
}

// ============================================
// Requests
// ============================================

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends one request and decodes a JSON answer into out. out is left
// untouched when the answer has no body.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	status, data, err := c.send(ctx, method, path, payload, c.AccessToken())
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && path != refreshPath {
		token, rerr := c.Refresh(ctx)
		if rerr == nil {
			status, data, err = c.send(ctx, method, path, payload, token)
			if err != nil {
				return err
			}
		} else {
			c.log.Debug().Err(rerr).Str("path", path).Msg("token refresh failed")
		}
	}

	return decodeResponse(method, path, status, data, out)
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers
// share one refresh call. A rejected refresh, or a missing refresh token,
// clears both tokens.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		refreshToken := c.RefreshToken()
		if refreshToken == "" {
			c.clearAfterRejectedRefresh(ctx)
			return "", ErrNoRefreshToken
		}

		payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
		if err != nil {
			return "", fmt.Errorf("failed to marshal refresh request: %w", err)
		}
		status, data, err := c.send(ctx, http.MethodPost, refreshPath, payload, "")
		if err != nil {
			return "", err
		}
		if status < 200 || status >= 300 {
			c.clearAfterRejectedRefresh(ctx)
			return "", newError(http.MethodPost, refreshPath, status, data)
		}

		var auth struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.Unmarshal(data, &auth); err != nil || auth.AccessToken == "" {
			c.clearAfterRejectedRefresh(ctx)
			return "", fmt.Errorf("%w: refresh answer carries no access token", ErrDecode)
		}
		if auth.RefreshToken == "" {
			auth.RefreshToken = refreshToken
		}
		if err := c.tokens.set(ctx, Tokens{AccessToken: auth.AccessToken, RefreshToken: auth.RefreshToken}); err != nil {
			c.log.Warn().Err(err).Msg("refreshed tokens kept in memory only")
		}
		c.log.Debug().Msg("access token refreshed")
		return auth.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) clearAfterRejectedRefresh(ctx context.Context) {
	if err := c.tokens.clear(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear tokens after rejected refresh")
	}
}

// send performs the HTTP exchange and returns the status and full body.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")
	return resp.StatusCode, data, nil
}

func decodeResponse(method, path string, status int, data []byte, out any) error {
	if status < 200 || status >= 300 {
		return newError(method, path, status, data)
	}
	if out == nil || status == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Join(ErrDecode, fmt.Errorf("%s %s: %w", method, path, err))
	}
	return nil
}
