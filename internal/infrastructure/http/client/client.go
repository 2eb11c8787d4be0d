// Package client talks to the focusflow HTTP API. Day binds it to one day and
// satisfies countdown.Store, so the terminal client's countdown manager can run
// against a remote server.
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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/http/api"
	"github.com/rezkam/focusflow/internal/infrastructure/http/response"
)

// Default configuration values for the client.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
	maxRetryWait      = 10 * time.Second
)

// Config holds configuration for the Client.
type Config struct {
	BaseURL    string // server root, e.g. http://localhost:8080
	APIKey     string
	Timeout    time.Duration // per request; event streams are not bounded
	MaxRetries int           // retries on 429, honouring Retry-After

	// HTTPClient overrides the instrumented default, for tests.
	HTTPClient *http.Client
}

// Client is a thin JSON client for the /api/v1 routes.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	http       *http.Client
}

// New creates a client. Requests are traced through otelhttp.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/api/v1",
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		http:       cfg.HTTPClient,
	}
}

// APIError is a non-2xx answer from the server. It unwraps to the domain
// sentinel matching its status, so callers can use errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api error %d %s: %s (%s)", e.Status, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the status to a domain error.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound && strings.HasPrefix(e.Message, "subtask"):
		return domain.ErrSubtaskNotFound
	case e.Status == http.StatusNotFound:
		return domain.ErrTaskNotFound
	case e.Status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case e.Status == http.StatusConflict:
		return domain.ErrVersionConflict
	case e.Code == response.CodeGeneratorUnavailable:
		return domain.ErrGeneratorUnavailable
	case e.Status == http.StatusTooManyRequests, e.Status >= 500:
		return domain.ErrStoreUnavailable
	case e.Code == response.CodeValidation && e.Field == "task_id":
		return domain.ErrTaskNotTimed
	default:
		return nil
	}
}

// do sends one JSON request and decodes a 2xx answer into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, path, payload, "application/json")
		if err != nil {
			return err
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("%w: reading response of %s %s: %v", domain.ErrStoreUnavailable, method, path, readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, ctx.Err())
			case <-time.After(retryAfter(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return decodeError(resp.StatusCode, respBody)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}
		return nil
	}
}

// send issues the request. Transport failures wrap ErrStoreUnavailable.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, accept string) (*http.Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrStoreUnavailable, method, path, err)
	}
	return resp, nil
}

func decodeError(status int, body []byte) error {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var envelope response.ErrorResponse
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		if len(envelope.Error.Details) > 0 {
			apiErr.Field = envelope.Error.Details[0].Field
		}
	}
	return apiErr
}

// retryAfter reads Retry-After in seconds, falling back to exponential backoff.
func retryAfter(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return min(time.Duration(seconds)*time.Second, maxRetryWait)
		}
	}
	return min(time.Duration(1<<attempt)*time.Second, maxRetryWait)
}

func dayPath(day domain.Day) string {
	return "/days/" + url.PathEscape(day.String())
}

func taskPath(day domain.Day, taskID string) string {
	return dayPath(day) + "/tasks/" + url.PathEscape(taskID)
}

// decodeTask maps a TaskResponse; a null task maps to nil.
func decodeTask(resp api.TaskResponse) (*domain.Task, error) {
	if resp.Task == nil {
		return nil, nil
	}
	return api.TaskFromDTO(*resp.Task)
}

func decodeTasks(dtos []api.TaskDTO) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0, len(dtos))
	var errs []error
	for _, dto := range dtos {
		t, err := api.TaskFromDTO(dto)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, errors.Join(errs...)
}
