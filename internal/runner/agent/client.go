// Package agent implements the model-backed executor used by the job runner.
// It talks to the configured completion endpoint over plain HTTP.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pathworklabs/pathwork/internal/config"
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
)

var (
	ErrEndpointNotConfigured = errors.New("agent_endpoint_not_configured")
	ErrRequestFailed         = errors.New("agent_request_failed")
)

type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewClient(cfg config.Config) *Client {
	timeout := time.Duration(cfg.Runner.AgentTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSpace(cfg.Runner.AgentEndpoint),
		apiKey:   strings.TrimSpace(cfg.Runner.AgentAPIKey),
		client:   &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Feature string          `json:"feature"`
	Mode    string          `json:"mode"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Invalid string          `json:"invalid_output,omitempty"`
}

func (c *Client) Execute(ctx context.Context, job *runnerdomain.Job) (json.RawMessage, error) {
	return c.generate(ctx, generateRequest{
		Feature: job.Feature,
		Mode:    "generate",
		Payload: json.RawMessage(job.InputPayload),
	})
}

// Repair asks the model to fix its own syntactically invalid output instead
// of burning a full retry on a fresh generation.
func (c *Client) Repair(ctx context.Context, job *runnerdomain.Job, invalid []byte) (json.RawMessage, error) {
	return c.generate(ctx, generateRequest{
		Feature: job.Feature,
		Mode:    "repair",
		Payload: json.RawMessage(job.InputPayload),
		Invalid: string(invalid),
	})
}

// Fallback requests a reduced summary when full generation is exhausted. A
// usable degraded result is still a success for settlement purposes.
func (c *Client) Fallback(ctx context.Context, job *runnerdomain.Job) (json.RawMessage, error) {
	return c.generate(ctx, generateRequest{
		Feature: job.Feature,
		Mode:    "fallback_summary",
		Payload: json.RawMessage(job.InputPayload),
	})
}

func (c *Client) generate(ctx context.Context, payload generateRequest) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, ErrEndpointNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, ErrRequestFailed
	}

	out, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return out, nil
}
