// Package personstore is the client for the remote "person" REST resource that holds guest records.
package personstore

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

	"go.uber.org/zap"

	"github.com/wedding-invite/backend/internal/models"
)

// DefaultResource is the resource name used by the hosted mock API.
const DefaultResource = "person"

// Config configures a Client.
type Config struct {
	BaseURL  string        // e.g. https://xxxx.mockapi.io/JsonInvitados
	Resource string        // defaults to "person"
	Timeout  time.Duration // 0 leaves the transport's own timeout in charge
}

// RemoteStoreError is returned for any non-success status or transport failure.
// Status is 0 when the store could not be reached.
type RemoteStoreError struct {
	Op     string
	Status int
	Err    error
}

func (e *RemoteStoreError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("person store %s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("person store %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("person store %s: status %d", e.Op, e.Status)
}

func (e *RemoteStoreError) Unwrap() error { return e.Err }

// Client performs single-attempt CRUD calls against the person resource. There is no retry.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a person store client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	resource := cfg.Resource
	if resource == "" {
		resource = DefaultResource
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(resource, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// List returns every guest in the order the store reports them.
func (c *Client) List(ctx context.Context) ([]models.Guest, error) {
	var out []models.Guest
	if err := c.do(ctx, "list", http.MethodGet, c.endpoint, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Guest{}
	}
	return out, nil
}

// Create stores a new guest. The store assigns the id.
func (c *Client) Create(ctx context.Context, patch models.GuestPatch) (*models.Guest, error) {
	var g models.Guest
	if err := c.do(ctx, "create", http.MethodPost, c.endpoint, patch, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Update sends only the fields set in patch and returns the full record the store echoes back.
func (c *Client) Update(ctx context.Context, id string, patch models.GuestPatch) (*models.Guest, error) {
	var g models.Guest
	if err := c.do(ctx, "update", http.MethodPut, c.itemURL(id), patch, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Delete removes a guest.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, c.itemURL(id), nil, nil)
}

func (c *Client) itemURL(id string) string {
	return c.endpoint + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, op, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &RemoteStoreError{Op: op, Err: fmt.Errorf("marshal body: %w", err)}
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &RemoteStoreError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("person store unreachable", zap.String("op", op), zap.Error(err))
		return &RemoteStoreError{Op: op, Err: err}
	}
	defer res.Body.Close()
	c.logger.Debug("person store call",
		zap.String("op", op),
		zap.String("method", method),
		zap.Int("status", res.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		c.logger.Warn("person store rejected request",
			zap.String("op", op),
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", snippet),
		)
		return &RemoteStoreError{Op: op, Status: res.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &RemoteStoreError{Op: op, Status: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
