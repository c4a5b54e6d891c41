package chat

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

	"github.com/alexSpace56/data-navigator/internal/answer"
	"github.com/alexSpace56/data-navigator/internal/errors"
)

const (
	// DefaultTimeout bounds question requests
	DefaultTimeout = 30 * time.Second

	// DefaultReindexTimeout bounds reindex requests, which outlive the server's
	// own request timeout on a first local-model run
	DefaultReindexTimeout = 150 * time.Second
)

// QueryResponse mirrors the API's /api/query body
type QueryResponse struct {
	Answer  string               `json:"answer"`
	Context []answer.ContextItem `json:"context"`
	Results []answer.ContextItem `json:"results"`
	Error   string               `json:"error,omitempty"`
}

// IndexResponse mirrors the API's /api/index body
type IndexResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// API is what the session needs from the backend
type API interface {
	Query(ctx context.Context, question string) (*QueryResponse, error)
	Reindex(ctx context.Context, clear bool) (*IndexResponse, error)
}

// Client talks to a running data-navigator API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	reindexTimeout time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithReindexTimeout bounds reindex requests; d <= 0 keeps DefaultReindexTimeout
func WithReindexTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.reindexTimeout = d
		}
	}
}

// NewClient creates a client for baseURL; timeout <= 0 uses DefaultTimeout
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     &http.Client{},
		timeout:        timeout,
		reindexTimeout: DefaultReindexTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Query asks a question
func (c *Client) Query(ctx context.Context, question string) (*QueryResponse, error) {
	var resp QueryResponse

	message, err := c.post(ctx, c.timeout, "/api/query", map[string]string{"question": question}, &resp)
	if err != nil {
		return nil, c.describe(err, message, resp.Answer)
	}

	if resp.Results == nil {
		resp.Results = resp.Context
	}

	return &resp, nil
}

// Reindex rebuilds the server's index; clear replaces the collection
func (c *Client) Reindex(ctx context.Context, clear bool) (*IndexResponse, error) {
	path := "/api/index"
	if clear {
		path += "?" + url.Values{"clear": {"true"}}.Encode()
	}

	var resp IndexResponse

	message, err := c.post(ctx, c.reindexTimeout, path, nil, &resp)
	if err != nil {
		return nil, c.describe(err, message, resp.Message)
	}

	return &resp, nil
}

// post sends body as JSON within timeout and decodes the reply into out, also on error statuses
func (c *Client) post(
	ctx context.Context,
	timeout time.Duration,
	path string,
	body interface{},
	out interface{},
) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader = http.NoBody

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrTypeInternal, "failed to encode request")
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeValidation, "invalid API URL")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, errors.FromContext(ctx.Err())
		}

		var timeout interface{ Timeout() bool }
		if errors.As(err, &timeout) && timeout.Timeout() {
			return 0, errors.Wrap(err, errors.ErrTypeTimeout, "API request timed out")
		}

		return 0, errors.Wrapf(err, errors.ErrTypeNetwork, "cannot reach API at %s", c.baseURL).
			WithSuggestion("Start the server with 'data-navigator serve' or set RAG_API_URL")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, errors.Wrap(err, errors.ErrTypeNetwork, "failed to read API response")
	}

	decodeErr := json.Unmarshal(data, out)

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, errors.Newf(errors.ErrTypeNetwork, "API returned status %d", resp.StatusCode)
	}

	if decodeErr != nil {
		return resp.StatusCode, errors.Wrap(decodeErr, errors.ErrTypeNetwork, "malformed API response")
	}

	return resp.StatusCode, nil
}

// describe turns a failed call into an error whose type follows the HTTP status
func (c *Client) describe(err error, status int, serverMessage string) error {
	var errType errors.ErrorType

	switch status {
	case 0, http.StatusOK:
		return err
	case http.StatusGatewayTimeout:
		errType = errors.ErrTypeTimeout
	case http.StatusConflict:
		errType = errors.ErrTypeConflict
	case http.StatusBadRequest:
		errType = errors.ErrTypeValidation
	default:
		errType = errors.ErrTypeNetwork
	}

	if serverMessage == "" {
		serverMessage = fmt.Sprintf("request failed with status %d", status)
	}

	return errors.Wrap(err, errType, serverMessage)
}
