package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polandar/mara-calc/internal/domain/model"
	"github.com/polandar/mara-calc/internal/domain/race"
)

// Client calls a running mara-calc server over HTTP.
type Client struct {
	baseURL        string
	client         *http.Client
	defaultMileage float64
}

// ClientOption applies a configuration option to the Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wireRequest matches the server's /predict body.
type wireRequest struct {
	Time1   string  `json:"time1,omitempty"`
	Dist1   string  `json:"dist1,omitempty"`
	Cond1   string  `json:"cond1,omitempty"`
	Time2   string  `json:"time2,omitempty"`
	Dist2   string  `json:"dist2,omitempty"`
	Cond2   string  `json:"cond2,omitempty"`
	Mileage float64 `json:"mileage"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toWire(in model.Input) wireRequest {
	return wireRequest{
		Time1:   in.Primary.Time,
		Dist1:   distanceName(in.Primary.Distance),
		Cond1:   conditionName(in.Primary.Condition),
		Time2:   in.Secondary.Time,
		Dist2:   distanceName(in.Secondary.Distance),
		Cond2:   conditionName(in.Secondary.Condition),
		Mileage: in.Mileage,
	}
}

func distanceName(d race.Distance) string {
	if d == race.DistanceUnset {
		return ""
	}
	return d.String()
}

func conditionName(c race.Condition) string {
	if c == race.ConditionUnset {
		return ""
	}
	return c.String()
}

// Sync checks the server is healthy and reads its default mileage.
func (c *Client) Sync(ctx context.Context) error {
	var health struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &health); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("service health check failed: status %q", health.Status)
	}

	var stats map[string]any
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	if m, ok := stats["defaultMileage"].(float64); ok {
		c.defaultMileage = m
	}
	return nil
}

// DefaultMileage returns the server default read by Sync.
func (c *Client) DefaultMileage() float64 {
	return c.defaultMileage
}

// Predict calls POST /predict.
func (c *Client) Predict(ctx context.Context, in model.Input) (model.Prediction, error) {
	var out model.Prediction
	if err := c.do(ctx, http.MethodPost, "/predict", toWire(in), &out); err != nil {
		return model.Prediction{}, err
	}
	return out, nil
}

// PredictBatch calls POST /predict/batch.
func (c *Client) PredictBatch(ctx context.Context, inputs []model.Input) ([]model.BatchItem, error) {
	req := struct {
		Items []wireRequest `json:"items"`
	}{Items: make([]wireRequest, len(inputs))}
	for i, in := range inputs {
		req.Items[i] = toWire(in)
	}

	var resp struct {
		Items []model.BatchItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodPost, "/predict/batch", req, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps an API error response back onto the model errors.
func statusError(status int, data []byte) error {
	var e wireError
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		msg = e.Message
	}
	switch status {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", model.ErrInvalidInput, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", model.ErrBackpressure, msg)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", model.ErrNotStarted, msg)
	default:
		return fmt.Errorf("server returned %d: %s", status, msg)
	}
}
