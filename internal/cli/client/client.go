package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/dealbook-dev/dealbook/internal/cli/auth"
)

const (
	// DefaultTimeout bounds every request when no timeout is configured
	DefaultTimeout = 30 * time.Second

	requestIDHeader = "X-Request-ID"
)

// TokenSource returns the current bearer token and whether one is available
type TokenSource func() (string, bool)

// Client represents an HTTP client for the marketplace REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     zerolog.Logger
}

// New creates a new API client
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		token:      func() (string, bool) { return "", false },
		logger:     zerolog.Nop(),
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetTokenSource sets where bearer tokens for authenticated calls come from
func (c *Client) SetTokenSource(source TokenSource) {
	c.token = source
}

// SetLogger sets the request logger
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is returned for any non-success response
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response. Older backends send the
// token as "token", newer ones as "accessToken".
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
}

// BearerToken returns whichever token field the backend populated
func (r *LoginResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// Login authenticates the user and returns the bearer token
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body, err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login",
		body:   LoginRequest{Email: email, Password: password},
	})
	if err != nil {
		return nil, err
	}

	// A 2xx without a token is still a rejection; keep the body for the caller.
	var loginResp LoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil || loginResp.BearerToken() == "" {
		return nil, &APIError{Op: "login", StatusCode: http.StatusOK, Body: strings.TrimSpace(string(body))}
	}

	return &loginResp, nil
}

// RoleResponse represents the role lookup response
type RoleResponse struct {
	Role string `json:"role"`
}

// GetRole returns the authenticated user's role within a business
func (c *Client) GetRole(ctx context.Context, businessID string) (string, error) {
	var roleResp RoleResponse
	_, err := c.do(ctx, request{
		op:     "get role",
		method: http.MethodGet,
		path:   "/auth/role/" + url.PathEscape(businessID),
		auth:   true,
		out:    &roleResp,
	})
	if err != nil {
		return "", err
	}
	return roleResp.Role, nil
}

// BookmarkRecord is a bookmark as the backend stores it. User and Deal are
// either plain IDs or populated documents.
type BookmarkRecord struct {
	MongoID   string          `json:"_id"`
	ID        string          `json:"id"`
	User      json.RawMessage `json:"user"`
	Deal      json.RawMessage `json:"deal"`
	CreatedAt *time.Time      `json:"createdAt"`
	UpdatedAt *time.Time      `json:"updatedAt"`
}

// ListBookmarks returns all bookmarks of the authenticated user
func (c *Client) ListBookmarks(ctx context.Context) ([]BookmarkRecord, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, request{
		op:     "list bookmarks",
		method: http.MethodGet,
		path:   "/bookmark-deal",
		auth:   true,
		out:    &raw,
	})
	if err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	// Both a bare array and a {"data": [...]} envelope are in use.
	if raw[0] == '{' {
		var envelope struct {
			Data []BookmarkRecord `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return envelope.Data, nil
	}

	var records []BookmarkRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}

// CreateBookmarkRequest represents the bookmark creation request
type CreateBookmarkRequest struct {
	Deal string `json:"deal"`
}

// CreateBookmark bookmarks a single deal
func (c *Client) CreateBookmark(ctx context.Context, dealID string) (*BookmarkRecord, error) {
	var record BookmarkRecord
	_, err := c.do(ctx, request{
		op:     "create bookmark",
		method: http.MethodPost,
		path:   "/bookmark-deal",
		body:   CreateBookmarkRequest{Deal: dealID},
		auth:   true,
		out:    &record,
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// BulkCreateBookmarksRequest represents the bulk bookmark creation request
type BulkCreateBookmarksRequest struct {
	Deals []string `json:"deals"`
}

// BulkCreateBookmarks bookmarks several deals in one request
func (c *Client) BulkCreateBookmarks(ctx context.Context, dealIDs []string) error {
	_, err := c.do(ctx, request{
		op:     "bulk create bookmarks",
		method: http.MethodPost,
		path:   "/bookmark-deal/bulk",
		body:   BulkCreateBookmarksRequest{Deals: dealIDs},
		auth:   true,
	})
	return err
}

// DeleteBookmark deletes a bookmark by its ID
func (c *Client) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	_, err := c.do(ctx, request{
		op:     "delete bookmark",
		method: http.MethodDelete,
		path:   "/bookmark-deal/" + url.PathEscape(bookmarkID),
		auth:   true,
	})
	return err
}

type request struct {
	op     string
	method string
	path   string
	body   any
	auth   bool
	out    any
}

// do sends req and decodes a 2xx body into req.out. The raw body is returned
// so callers can inspect it.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	var reader io.Reader
	if req.body != nil {
		jsonData, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := ulid.Make().String()
	httpReq.Header.Set(requestIDHeader, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if req.auth {
		token, ok := c.token()
		if !ok || token == "" {
			return nil, auth.ErrNotAuthenticated
		}
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug().Err(err).Str("request_id", requestID).Str("method", req.method).Str("path", req.path).Msg("Request failed")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &APIError{Op: req.op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if req.out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, req.out); err != nil {
			return body, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return body, nil
}
