// Package backend is the REST client for the DecoAromas API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrNotFound indicates the backend answered 404.
	ErrNotFound = errors.New("backend: not found")
	// ErrUnauthorized indicates the backend rejected the credentials.
	ErrUnauthorized = errors.New("backend: unauthorized")
)

// ValidationError is a 400 answer carrying per-field messages.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Details[k])
	}
	return "backend: validation failed: " + strings.Join(parts, "; ")
}

// ConflictError is a 409 answer to a mutation (unique constraint).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return "backend: conflict: " + e.Message
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.Path, e.Code)
}

// Config configures the client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
}

// Client talks to the DecoAromas REST API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient builds a Client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}
	return &Client{http: rc, logger: logger.With(slog.String("component", "backend"))}
}

type mutationErrorBody struct {
	Details map[string]string `json:"details"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
}

// statusErr maps a non-2xx response onto the error taxonomy.
func statusErr(resp *resty.Response) error {
	req := resp.Request
	code := resp.StatusCode()
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	var body mutationErrorBody
	_ = json.Unmarshal(resp.Body(), &body)
	switch code {
	case http.StatusBadRequest:
		if len(body.Details) > 0 {
			return &ValidationError{Details: body.Details}
		}
	case http.StatusConflict:
		msg := body.Error
		if msg == "" {
			msg = body.Message
		}
		return &ConflictError{Message: msg}
	}
	return &StatusError{Method: req.Method, Path: req.URL, Code: code, Body: string(resp.Body())}
}

// getJSON issues a GET and decodes a 2xx body into dest.
func (c *Client) getJSON(ctx context.Context, path string, params Params, dest any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params.Clone()).
		SetResult(dest).
		Get(path)
	if err != nil {
		return fmt.Errorf("backend: get %s: %w", path, err)
	}
	if resp.IsError() {
		return statusErr(resp)
	}
	return nil
}

// sendJSON issues a POST or PUT with a JSON body and decodes a 2xx body into dest.
func (c *Client) sendJSON(ctx context.Context, method, path string, body, dest any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(dest).
		Execute(method, path)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", strings.ToLower(method), path, err)
	}
	if resp.IsError() {
		err := statusErr(resp)
		c.logger.Info("mutation rejected", slog.String("method", method), slog.String("path", path), slog.Int("status", resp.StatusCode()))
		return err
	}
	return nil
}
