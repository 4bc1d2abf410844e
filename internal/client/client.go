// Package client is a typed HTTP client for the task-tracker REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// Page mirrors the server's list envelope.
type Page[T any] struct {
	Items       []T   `json:"items"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }
func (c *Client) Token() string   { return c.token }

// SetToken replaces the bearer token used for later requests.
func (c *Client) SetToken(token string) { c.token = token }

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{
		"email": email, "password": password,
	}, &out)
	if err != nil {
		return "", nil, err
	}
	c.token = out.Token
	return out.Token, out.User, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, map[string]string{
		"name": name, "email": email, "password": password,
	}, &out)
	return out.User, err
}

// TaskFilter narrows ListTasks. Zero values mean server defaults.
type TaskFilter struct {
	Page     int
	Limit    int
	Priority string
	Status   string
}

func (f TaskFilter) query() url.Values {
	q := pageQuery(f.Page, f.Limit)
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	return q
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func (c *Client) ListTasks(ctx context.Context, f TaskFilter) (*Page[domain.TaskView], error) {
	var out Page[domain.TaskView]
	if err := c.do(ctx, http.MethodGet, "/tasks", f.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMyTasks(ctx context.Context, page, limit int) (*Page[domain.TaskView], error) {
	var out Page[domain.TaskView]
	if err := c.do(ctx, http.MethodGet, "/tasks/my-tasks", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*domain.TaskView, error) {
	var out domain.TaskView
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewTask is the body of CreateTask. DueDate is sent as YYYY-MM-DD.
type NewTask struct {
	Title          string
	Description    string
	DueDate        time.Time
	Priority       string
	AssignedTo     string
	IdempotencyKey string
}

// CreateTask returns the created task and whether the server replayed an
// earlier submission with the same idempotency key.
func (c *Client) CreateTask(ctx context.Context, in NewTask) (*domain.TaskView, bool, error) {
	body := map[string]string{
		"title":       in.Title,
		"description": in.Description,
		"dueDate":     in.DueDate.Format(time.DateOnly),
		"assignedTo":  in.AssignedTo,
	}
	if in.Priority != "" {
		body["priority"] = in.Priority
	}
	var hdr http.Header
	if in.IdempotencyKey != "" {
		hdr = http.Header{"Idempotency-Key": []string{in.IdempotencyKey}}
	}

	var out domain.TaskView
	status, err := c.send(ctx, http.MethodPost, "/tasks", nil, hdr, body, &out)
	if err != nil {
		return nil, false, err
	}
	return &out, status == http.StatusOK, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.TaskView, error) {
	var out domain.TaskView
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id)+"/status", nil, map[string]string{"status": string(status)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListUsers(ctx context.Context, page, limit int) (*Page[domain.User], error) {
	var out Page[domain.User]
	if err := c.do(ctx, http.MethodGet, "/users", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, name, email, password, role string) (*domain.User, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	if role != "" {
		body["role"] = role
	}
	var out struct {
		User *domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/users", nil, body, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	_, err := c.send(ctx, method, path, q, nil, body, out)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, q url.Values, hdr http.Header, body, out any) (int, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, apiError(resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func apiError(status int, raw []byte) error {
	var env struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(status)
	if json.Unmarshal(raw, &env) == nil && env.Error != "" {
		msg = env.Error
	}
	return &APIError{Status: status, Message: msg}
}
