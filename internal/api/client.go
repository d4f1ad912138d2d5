// Package api is the HTTP client for the ClawMemory service. Each call
// issues exactly one request; retries, ranking and storage all belong to
// the service side.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/krupesh-app/clawmemory-openclaw/internal/config"
	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

// RemoteError is a non-success HTTP status from the service, carrying
// the status code and raw response body.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("clawmemory: remote returned status %d", e.Status)
	}
	return fmt.Sprintf("clawmemory: remote returned status %d: %s", e.Status, body)
}

// RequestLog captures one request the client issued, for the admin
// dashboard. Kept in a bounded in-memory ring, never persisted.
type RequestLog struct {
	Method     string
	Path       string
	Success    bool
	ErrorText  string
	DurationMS int64
	CreatedAt  time.Time
}

const requestLogCap = 64

// Client talks to the ClawMemory HTTP API. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	agentID string
	httpc   *http.Client
	logger  *log.Logger

	mu   sync.Mutex
	logs []RequestLog
}

// New builds a client from plugin configuration. No request timeout is
// set here; cancellation is the caller's context and whatever bound the
// transport itself enforces.
func New(cfg config.Config, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		agentID: cfg.AgentID,
		httpc:   &http.Client{},
		logger:  logger,
	}
}

// SetHTTPClient swaps the underlying transport, mainly for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpc = hc
	}
}

// Recall runs a semantic search. Results come back exactly as ranked by
// the service; the client never reorders or filters them. A success
// response with success=false or no payload is an empty result, not an
// error.
func (c *Client) Recall(ctx context.Context, query string, limit int, threshold float64) ([]types.Memory, error) {
	req := types.RecallRequest{
		Query:     query,
		Limit:     limit,
		Threshold: threshold,
		AgentID:   c.agentID,
	}
	env, err := c.do(ctx, http.MethodPost, "/memories/recall", req)
	if err != nil {
		return nil, err
	}
	if !env.Success || len(env.Data) == 0 {
		return []types.Memory{}, nil
	}
	var data types.RecallData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode recall payload: %w", err)
	}
	if data.Memories == nil {
		return []types.Memory{}, nil
	}
	return data.Memories, nil
}

// Store persists one memory and returns its identifier, or "" when the
// service accepted the request but reported no result.
func (c *Client) Store(ctx context.Context, content string, typ types.MemoryType, importance float64, tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	req := types.StoreRequest{
		Content:    content,
		Type:       typ,
		Importance: importance,
		Tags:       tags,
		AgentID:    c.agentID,
	}
	env, err := c.do(ctx, http.MethodPost, "/memories", req)
	if err != nil {
		return "", err
	}
	if !env.Success || len(env.Data) == 0 {
		return "", nil
	}
	var data types.StoreData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("decode store payload: %w", err)
	}
	return data.ID, nil
}

// List fetches recent memories. Exercised by the admin dashboard and the
// validation suite, not by the plugin hooks.
func (c *Client) List(ctx context.Context, limit int) ([]types.Memory, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if c.agentID != "" {
		q.Set("agentId", c.agentID)
	}
	path := "/memories"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success || len(env.Data) == 0 {
		return []types.Memory{}, nil
	}
	var data types.ListData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode list payload: %w", err)
	}
	if data.Memories == nil {
		return []types.Memory{}, nil
	}
	return data.Memories, nil
}

// Get fetches one memory by id.
func (c *Client) Get(ctx context.Context, id string) (types.Memory, error) {
	env, err := c.do(ctx, http.MethodGet, "/memories/"+url.PathEscape(id), nil)
	if err != nil {
		return types.Memory{}, err
	}
	if !env.Success || len(env.Data) == 0 {
		return types.Memory{}, fmt.Errorf("memory %s not found", id)
	}
	var mem types.Memory
	if err := json.Unmarshal(env.Data, &mem); err != nil {
		return types.Memory{}, fmt.Errorf("decode memory payload: %w", err)
	}
	return mem, nil
}

// Update patches one memory by id.
func (c *Client) Update(ctx context.Context, id string, patch types.UpdateRequest) error {
	_, err := c.do(ctx, http.MethodPatch, "/memories/"+url.PathEscape(id), patch)
	return err
}

// Delete removes one memory by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/memories/"+url.PathEscape(id), nil)
	return err
}

// RecentRequests returns the most recent request events, newest first.
func (c *Client) RecentRequests(limit int) []RequestLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit <= 0 || limit > len(c.logs) {
		limit = len(c.logs)
	}
	out := make([]RequestLog, 0, limit)
	for i := len(c.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, c.logs[i])
	}
	return out
}

func (c *Client) do(ctx context.Context, method, path string, body any) (types.Envelope, error) {
	started := time.Now()
	env, err := c.roundTrip(ctx, method, path, body)
	c.record(method, path, err, time.Since(started))
	return env, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (types.Envelope, error) {
	var env types.Envelope

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return env, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return env, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return env, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return env, &RemoteError{Status: resp.StatusCode, Body: string(raw)}
	}

	if len(raw) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode response envelope: %w", err)
	}
	return env, nil
}

func (c *Client) record(method, path string, err error, duration time.Duration) {
	entry := RequestLog{
		Method:     method,
		Path:       strings.SplitN(path, "?", 2)[0],
		Success:    err == nil,
		DurationMS: duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err != nil {
		entry.ErrorText = err.Error()
		c.logger.Debug("clawmemory request failed", "method", method, "path", entry.Path, "error", err)
	}

	c.mu.Lock()
	c.logs = append(c.logs, entry)
	if len(c.logs) > requestLogCap {
		c.logs = c.logs[len(c.logs)-requestLogCap:]
	}
	c.mu.Unlock()
}
