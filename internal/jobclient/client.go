// internal/jobclient/client.go
package jobclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/tendant/simple-translator/pkg/schema"
)

const maxErrorBody = 4 << 10

// Client talks to the remote translation job service over HTTP.
// It is safe for concurrent use; every polling session may share one Client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a Client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateJob submits a new job and returns its identifier. Failures are
// reported as *CreationError and are never retried here.
func (c *Client) CreateJob(ctx context.Context, req schema.CreateJobRequest) (schema.JobID, error) {
	params, err := query.Values(req)
	if err != nil {
		return "", &CreationError{Err: fmt.Errorf("encode parameters: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs?"+params.Encode(), nil)
	if err != nil {
		return "", &CreationError{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("failed to create job", "err", err)
		return "", &CreationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readDetail(resp.Body)
		c.logger.Error("failed to create job", "status_code", resp.StatusCode, "detail", detail)
		return "", &CreationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("service rejected job: %s", detail)}
	}

	var out schema.CreateJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &CreationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.JobID == "" {
		return "", &CreationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("response is missing job_id")}
	}
	return out.JobID, nil
}

// GetStatus fetches the current status document for a job. It does not
// interpret the result value; unknown values are left to the caller.
func (c *Client) GetStatus(ctx context.Context, jobID schema.JobID) (*schema.StatusPayload, error) {
	endpoint := c.baseURL + "/status/" + url.PathEscape(string(jobID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: "build status request", Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "get status", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &ProtocolError{JobID: string(jobID), StatusCode: resp.StatusCode, Err: ErrJobNotFound}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &ProtocolError{JobID: string(jobID), StatusCode: resp.StatusCode, Message: readDetail(resp.Body)}
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProtocolError{JobID: string(jobID), StatusCode: resp.StatusCode, Message: "decode status body", Err: err}
	}
	result, ok := body["result"].(string)
	if !ok {
		return nil, &ProtocolError{JobID: string(jobID), StatusCode: resp.StatusCode, Message: "status body is missing a string result field"}
	}

	return &schema.StatusPayload{JobID: jobID, Result: result, Body: body}, nil
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func readDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
