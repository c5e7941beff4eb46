// Package remote implements store.Store against the ArabicBase HTTP API.
// The bearer token decides which user every call acts as.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arabicbase/arabicbase/internal/api/dto"
	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
	"github.com/arabicbase/arabicbase/internal/store"
)

const (
	apiPrefix        = "/api/v1"
	maxResponseBytes = 8 << 20
)

// HTTPError is a failed response the client could not map onto a store
// sentinel.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote: http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote: http %d: %s", e.StatusCode, e.Message)
}

// Config configures the client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is a store.Store session over HTTP.
type Client struct {
	baseURL    string
	token      string
	userID     string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

var _ store.Store = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = logger.Component(l, "remote") }
}

// WithMetrics records each call as a persistence operation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Dial creates a client and fetches the token's profile to learn which user
// it acts as. A rejected token fails here rather than on first use.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.Validation("remote: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("remote: parse base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	c := &Client{
		baseURL:    base,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Transport: tr, Timeout: cfg.Timeout},
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	p, err := c.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote: identify token: %w", err)
	}
	c.userID = p.UserID
	c.logger.Debug("connected", slog.String("base_url", base), slog.String("user_id", c.userID))
	return c, nil
}

// UserID implements store.Store.
func (c *Client) UserID() string { return c.userID }

// GetEntries implements store.Store.
func (c *Client) GetEntries(ctx context.Context, scope store.Scope) ([]*domain.Entry, error) {
	if !scope.Valid() {
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown scope %q", scope))
	}
	var out dto.ListResponse[*domain.Entry]
	q := url.Values{"scope": {string(scope)}}
	if err := c.do(ctx, "get_entries", http.MethodGet, "/entries?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// SaveEntry implements store.Store.
func (c *Client) SaveEntry(ctx context.Context, e *domain.Entry) error {
	var out dto.SavedEntry
	if err := c.do(ctx, "save_entry", http.MethodPut, "/entries/"+url.PathEscape(e.ID), dto.FromEntry(e), &out); err != nil {
		return err
	}
	e.OwnerID = out.OwnerID
	e.ConceptID = out.ConceptID
	return nil
}

// DeleteEntry implements store.Store.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.do(ctx, "delete_entry", http.MethodDelete, "/entries/"+url.PathEscape(id), nil, nil)
}

// DeleteEntriesByCatalog implements store.Store.
func (c *Client) DeleteEntriesByCatalog(ctx context.Context, kind domain.CatalogKind, name string) (int, error) {
	var out dto.CountResponse
	q := url.Values{"name": {name}}
	path := "/catalogs/" + url.PathEscape(string(kind)) + "/entries?" + q.Encode()
	if err := c.do(ctx, "delete_entries_by_"+string(kind), http.MethodDelete, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// GetSubscriptions implements store.Store.
func (c *Client) GetSubscriptions(ctx context.Context, kind domain.CatalogKind) ([]string, error) {
	return c.names(ctx, "get_subscriptions", "/subscriptions/"+url.PathEscape(string(kind)))
}

// Subscribe implements store.Store.
func (c *Client) Subscribe(ctx context.Context, kind domain.CatalogKind, name string) error {
	return c.do(ctx, "subscribe", http.MethodPost, "/subscriptions/"+url.PathEscape(string(kind)),
		dto.CatalogRequest{Name: name}, nil)
}

// Unsubscribe implements store.Store.
func (c *Client) Unsubscribe(ctx context.Context, kind domain.CatalogKind, name string) error {
	q := url.Values{"name": {name}}
	return c.do(ctx, "unsubscribe", http.MethodDelete,
		"/subscriptions/"+url.PathEscape(string(kind))+"?"+q.Encode(), nil, nil)
}

// GetCatalog implements store.Store.
func (c *Client) GetCatalog(ctx context.Context, kind domain.CatalogKind) ([]string, error) {
	return c.names(ctx, "get_catalog", "/catalogs/"+url.PathEscape(string(kind)))
}

// GetConceptNames implements store.Store.
func (c *Client) GetConceptNames(ctx context.Context) ([]string, error) {
	return c.names(ctx, "get_concept_names", "/concepts")
}

// VoteEntry implements store.Store.
func (c *Client) VoteEntry(ctx context.Context, entryID string, t domain.VoteType) error {
	return c.do(ctx, "vote_entry", http.MethodPut, "/votes/"+url.PathEscape(entryID),
		dto.VoteRequest{Type: string(t)}, nil)
}

// RemoveVote implements store.Store.
func (c *Client) RemoveVote(ctx context.Context, entryID string) error {
	return c.do(ctx, "remove_vote", http.MethodDelete, "/votes/"+url.PathEscape(entryID), nil, nil)
}

// GetUserVotes implements store.Store.
func (c *Client) GetUserVotes(ctx context.Context) (map[string]domain.VoteType, error) {
	out := map[string]domain.VoteType{}
	if err := c.do(ctx, "get_user_votes", http.MethodGet, "/votes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProfile implements store.Store.
func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var out dto.ProfileResponse
	if err := c.do(ctx, "get_profile", http.MethodGet, "/profile", nil, &out); err != nil {
		return nil, err
	}
	return &domain.Profile{
		UserID:    out.UserID,
		IsPro:     out.IsPro,
		CreatedAt: out.CreatedAt,
		UpdatedAt: out.UpdatedAt,
	}, nil
}

func (c *Client) names(ctx context.Context, op, path string) ([]string, error) {
	var out dto.ListResponse[string]
	if err := c.do(ctx, op, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		return []string{}, nil
	}
	return out.Items, nil
}

// do sends one request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.RecordPersistence(op, err, time.Since(start)) }()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode %s: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("remote: build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("remote: read %s: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := decodeError(resp.StatusCode, raw)
		c.logger.Debug("request failed",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode),
			logger.Err(err))
		return err
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("remote: decode %s: %w", op, err)
	}
	return nil
}

// decodeError maps an error response back onto the error the server-side
// store returned.
func decodeError(status int, raw []byte) error {
	var body dto.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
		if body.Message == "" {
			body.Message = http.StatusText(status)
		}
	}

	switch {
	case body.Code == string(errors.CodeConceptConflict):
		return errors.ConceptConflictf("%s", body.Message)
	case status == http.StatusUnprocessableEntity:
		return store.ErrInvalidInput.WithMessage(body.Message)
	}
	if sentinel := store.FromStatus(status, body.Message); sentinel != nil {
		return sentinel
	}
	return &HTTPError{StatusCode: status, Code: body.Code, Message: body.Message}
}
