// Package apiclient talks to the firelog HTTP API on behalf of a signed-in
// user.
package apiclient

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

	"firelog/backend/internal/domain/export"
	"firelog/backend/internal/domain/tasklog"
)

// TokenSource yields the bearer token for each request. *identity.Session
// implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client implements the task/log facade over HTTP.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response. A 400 matches tasklog.ErrBadRequest.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error %d", e.Status)
	}
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusBadRequest {
		return tasklog.ErrBadRequest
	}
	return nil
}

func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// --- HTTP helpers ---

func scopePath(scope tasklog.Scope) string {
	if scope.IsGlobal() {
		return "/v1/global"
	}
	return "/v1/me"
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// --- facade ---

type Me struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.doJSON(ctx, http.MethodGet, "/v1/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *Client) UpsertTask(ctx context.Context, scope tasklog.Scope, taskID string, fields map[string]any, mode tasklog.WriteMode) error {
	body := map[string]any{"fields": fields, "mode": mode.String()}
	return c.doJSON(ctx, http.MethodPut, scopePath(scope)+"/tasks/"+url.PathEscape(taskID), body, nil)
}

func (c *Client) ListAllTasks(ctx context.Context, scope tasklog.Scope) ([]tasklog.Task, error) {
	var out struct {
		Tasks []tasklog.Task `json:"tasks"`
	}
	if err := c.doJSON(ctx, http.MethodGet, scopePath(scope)+"/tasks", nil, &out); err != nil {
		return nil, err
	}
	if out.Tasks == nil {
		out.Tasks = []tasklog.Task{}
	}
	return out.Tasks, nil
}

func (c *Client) AppendLog(ctx context.Context, scope tasklog.Scope, taskID, logID string) error {
	return c.doJSON(ctx, http.MethodPut, logPath(scope, taskID, logID), nil, nil)
}

func (c *Client) AppendLogUnits(ctx context.Context, scope tasklog.Scope, taskID, logID string, units float64) error {
	return c.doJSON(ctx, http.MethodPut, logPath(scope, taskID, logID), map[string]any{"units": units}, nil)
}

func (c *Client) LoadLogsForTask(ctx context.Context, scope tasklog.Scope, taskID string) ([]tasklog.LogEntry, error) {
	return c.logs(ctx, scopePath(scope)+"/tasks/"+url.PathEscape(taskID)+"/logs")
}

func (c *Client) LoadAllLogs(ctx context.Context, scope tasklog.Scope) ([]tasklog.LogEntry, error) {
	return c.logs(ctx, scopePath(scope)+"/logs")
}

func (c *Client) Export(ctx context.Context, scope tasklog.Scope) (*export.Result, error) {
	var res export.Result
	if err := c.doJSON(ctx, http.MethodPost, scopePath(scope)+"/exports", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) logs(ctx context.Context, path string) ([]tasklog.LogEntry, error) {
	var out struct {
		Logs []tasklog.LogEntry `json:"logs"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Logs == nil {
		out.Logs = []tasklog.LogEntry{}
	}
	return out.Logs, nil
}

func logPath(scope tasklog.Scope, taskID, logID string) string {
	return scopePath(scope) + "/tasks/" + url.PathEscape(taskID) + "/logs/" + url.PathEscape(logID)
}
