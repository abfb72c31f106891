// Package ollama is a minimal client for the Ollama generate API, covering
// the single non-streaming image+prompt call this project needs.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "http://localhost:11434"

	// Vision models can be slow to answer on commodity hardware, so the
	// default is generous.
	DefaultTimeout = 120 * time.Second
)

var (
	// ErrBadStatus is returned when the backend replies with a non-2xx status.
	ErrBadStatus = errors.New("ollama: request failed")

	// ErrMalformedReply is returned when a 2xx reply does not carry the
	// generated text field.
	ErrMalformedReply = errors.New("ollama: malformed reply")
)

type ClientOpts struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	httpClient *resty.Client
	baseURL    string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: DefaultBaseURL}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &c
}

// BaseURL returns the base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ModelOptions carries the sampling parameters of a generate call. Ollama
// calls the output length num_predict rather than max_tokens.
type ModelOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type GenerateRequest struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	Images  []string     `json:"images"`
	Stream  bool         `json:"stream"`
	Options ModelOptions `json:"options"`
}

type GenerateResponse struct {
	Model         string `json:"model"`
	CreatedAt     string `json:"created_at"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	DoneReason    string `json:"done_reason"`
	TotalDuration int64  `json:"total_duration"`
	EvalCount     int    `json:"eval_count"`
}

// Generation is a parsed generate reply plus the verbatim response body for
// diagnostics.
type Generation struct {
	GenerateResponse
	Raw json.RawMessage
}

// Generate performs a single blocking generate call. Streaming is always
// disabled; partial responses are not supported.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Generation, error) {
	req.Stream = false

	res, err := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetBody(req).
		Post("/api/generate")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, statusError(res)
	}

	body := res.Body()

	// The text field must be present even if empty; probe with a pointer so
	// an absent field is distinguishable from "".
	var probe struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if probe.Response == nil {
		return nil, fmt.Errorf("%w: body has no response field", ErrMalformedReply)
	}

	var parsed GenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	return &Generation{
		GenerateResponse: parsed,
		Raw:              append(json.RawMessage(nil), body...),
	}, nil
}

// statusError turns a failing response (>399 status code) into an error that
// includes the backend's own error message when it sent one.
func statusError(res *resty.Response) error {
	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(res.Body(), &apiErr)
	if apiErr.Error != "" {
		return fmt.Errorf("%w: %s %s (status %d): %s",
			ErrBadStatus, res.Request.Method, res.Request.URL, res.StatusCode(), apiErr.Error)
	}
	return fmt.Errorf("%w: %s %s (status %d)",
		ErrBadStatus, res.Request.Method, res.Request.URL, res.StatusCode())
}
