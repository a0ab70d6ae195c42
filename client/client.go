// Package client is a typed HTTP client for the locator API. It keeps the
// session cookie and the anti-forgery token between calls.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/status"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("locator api: %d %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the shared failure kinds.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return apperr.ErrValidation
	case http.StatusForbidden, http.StatusUnauthorized:
		return apperr.ErrAuthorization
	case http.StatusNotFound:
		return apperr.ErrNotFound
	default:
		return apperr.ErrStore
	}
}

// Session mirrors the session endpoint payload.
type Session struct {
	Authenticated bool     `json:"authenticated"`
	Username      string   `json:"username"`
	Roles         []string `json:"roles"`
	CanManage     bool     `json:"can_manage"`
	CSRFToken     string   `json:"csrf_token"`
}

// CommentResult is the data block of a successful comment update.
type CommentResult struct {
	FacilityID int64          `json:"facility_id"`
	Comment    status.Comment `json:"comment"`
}

// Client talks to one locator server.
type Client struct {
	base *url.URL
	http *http.Client

	mu   sync.RWMutex
	csrf string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	c := &Client{base: base, http: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Token returns the cached anti-forgery token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrf
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.csrf = token
	c.mu.Unlock()
}

// Session fetches the current session and caches its token.
func (c *Client) Session(ctx context.Context) (Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, nil, &s); err != nil {
		return Session{}, err
	}
	c.setToken(s.CSRFToken)
	return s, nil
}

// Login signs in and caches the rotated token.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return Session{}, err
	}
	form := url.Values{
		"username":    {username},
		"password":    {password},
		"human_check": {"on"},
		"csrf_token":  {token},
	}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", form, nil, &s); err != nil {
		return Session{}, err
	}
	c.setToken(s.CSRFToken)
	return s, nil
}

// Search runs a live search. Empty category or town means unfiltered.
func (c *Client) Search(ctx context.Context, keyword, category, town string) ([]models.Facility, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{"q": {keyword}}
	if category != "" {
		q.Set("category", category)
	}
	if town != "" {
		q.Set("town", town)
	}
	var out []models.Facility
	err = c.do(ctx, http.MethodGet, "/api/facilities/search?"+q.Encode(), nil, map[string]string{"X-CSRF-Token": token}, &out)
	return out, err
}

// Facility fetches one facility.
func (c *Client) Facility(ctx context.Context, id int64) (models.Facility, error) {
	var f models.Facility
	err := c.do(ctx, http.MethodGet, "/api/facilities/"+strconv.FormatInt(id, 10), nil, nil, &f)
	return f, err
}

// Pins lists every facility that has coordinates.
func (c *Client) Pins(ctx context.Context) ([]models.Facility, error) {
	var out []models.Facility
	err := c.do(ctx, http.MethodGet, "/api/facilities/pins", nil, nil, &out)
	return out, err
}

// UpdateComment sets the status comment of a facility.
func (c *Client) UpdateComment(ctx context.Context, id int64, comment status.Comment) (CommentResult, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return CommentResult{}, err
	}
	form := url.Values{
		"facility_id": {strconv.FormatInt(id, 10)},
		"comments":    {string(comment)},
		"csrf_token":  {token},
	}
	var resp struct {
		Success bool          `json:"success"`
		Data    CommentResult `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/facilities/comments", form, nil, &resp); err != nil {
		return CommentResult{}, err
	}
	return resp.Data, nil
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if token := c.Token(); token != "" {
		return token, nil
	}
	s, err := c.Session(ctx)
	if err != nil {
		return "", err
	}
	return s.CSRFToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, headers map[string]string, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

// IsTimeout reports whether err came from a deadline or client timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
