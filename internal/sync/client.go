package sync

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
)

const (
	// A hung request must fail the sync, not block it indefinitely.
	defaultTimeout = 30 * time.Second

	// Outbound pacing: a sync bursts a handful of requests (tombstone
	// deletes, push, pull) and then goes quiet.
	defaultRPS   = 5.0
	defaultBurst = 10
)

// ChangeRecord describes one entity change in a pull response. Deleted
// records carry a tombstone: the entity was removed remotely since the
// pull's watermark.
type ChangeRecord struct {
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Deleted    bool      `json:"deleted,omitempty"`
}

// PullResponse is the server's answer to GET /sync. ServerTime is the
// server clock at pull time; the client persists it as the next sync
// watermark so a skewed client clock cannot skip remote changes.
type PullResponse struct {
	Changes    []ChangeRecord `json:"changes"`
	Books      []*domain.Book `json:"books"`
	Pages      []*domain.Page `json:"pages"`
	Tags       []domain.Tag   `json:"tags"`
	ServerTime time.Time      `json:"serverTime,omitzero"`
}

// PushPayload carries only dirty and new entities, never the full
// collection.
type PushPayload struct {
	Books []*domain.Book `json:"books"`
	Pages []*domain.Page `json:"pages"`
	Tags  []domain.Tag   `json:"tags"`
}

// Empty reports whether the payload carries no entities.
func (p *PushPayload) Empty() bool {
	return len(p.Books) == 0 && len(p.Pages) == 0 && len(p.Tags) == 0
}

// PushResult is the server's answer to POST /sync. IDMap maps provisional
// client ids to the canonical ids the server assigned.
type PushResult struct {
	Status string            `json:"status"`
	IDMap  map[string]string `json:"id_map,omitzero"`
}

// ClientConfig configures a sync transport client.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client speaks the push/pull protocol with the sync server. Every request
// runs under the configured timeout and through the rate limiter; a
// network failure or non-2xx status is a transport error the orchestrator
// observes, never a silently swallowed one.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a sync transport client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		logger:  logger,
	}
}

// Pull requests changes since the watermark. A nil since omits the query
// parameter, requesting a full snapshot.
func (c *Client) Pull(ctx context.Context, since *time.Time) (*PullResponse, error) {
	path := "/sync"
	if since != nil {
		q := url.Values{}
		q.Set("since", since.UTC().Format(time.RFC3339))
		path += "?" + q.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var pull PullResponse
	if err := json.Unmarshal(body, &pull); err != nil {
		return nil, errors.Transport("malformed pull response").WithCause(err)
	}
	c.logger.Debug("pulled changes",
		"books", len(pull.Books),
		"pages", len(pull.Pages),
		"full_snapshot", since == nil,
	)
	return &pull, nil
}

// Push sends the dirty entities to the server.
func (c *Client) Push(ctx context.Context, payload *PushPayload) (*PushResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal push payload: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/sync", raw)
	if err != nil {
		return nil, err
	}

	var result PushResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Transport("malformed push response").WithCause(err)
	}
	c.logger.Debug("pushed changes",
		"books", len(payload.Books),
		"pages", len(payload.Pages),
		"remapped", len(result.IDMap),
	)
	return &result, nil
}

// DeleteEntity issues one entity-scoped deletion request. Called once per
// tombstone before the bulk push so a failed push cannot resurrect an
// entity the user deleted.
func (c *Client) DeleteEntity(ctx context.Context, entityType, id string) error {
	path := fmt.Sprintf("/sync/entity/%s/%s", url.PathEscape(entityType), url.PathEscape(id))
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	return err
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Transportf("%s %s failed", method, path).WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Transportf("read %s %s response", method, path).WithCause(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Transportf("%s %s returned %d", method, path, resp.StatusCode)
	}
	return body, nil
}
