// Package inference is the typed client for the local inference server
// (Ollama wire format): text generation, vision-augmented generation,
// embeddings and installed-model listing. Every call takes a context;
// cancelling the owning task aborts the in-flight request.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/pkg/metrics"
)

// maxResponseBytes caps how much of an inference response is read.
const maxResponseBytes = 10 << 20

// Client talks to one inference endpoint. It is safe for concurrent
// use by multiple lifecycle workers.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
	metrics *metrics.Metrics
}

// NewClient builds a client for the given endpoint, e.g.
// "http://localhost:11434". metrics may be nil.
func NewClient(baseURL string, log *logrus.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		log:     log,
		metrics: m,
	}
}

// GenerateRequest is the /api/generate payload. Stream is always false;
// the daemon consumes whole responses.
type GenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
	Format string   `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}

// ModelInfo describes one installed model from /api/tags.
type ModelInfo struct {
	Name string `json:"name"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// Complete asks the model for a text completion. jsonMode requests a
// JSON-formatted response.
func (c *Client) Complete(ctx context.Context, model, prompt string, jsonMode bool) (string, error) {
	req := GenerateRequest{Model: model, Prompt: prompt, Stream: false}
	if jsonMode {
		req.Format = "json"
	}
	return c.Generate(ctx, req)
}

// Vision asks the model about a base64-encoded PNG screenshot.
func (c *Client) Vision(ctx context.Context, model, prompt, imageB64 string) (string, error) {
	return c.Generate(ctx, GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Images: []string{imageB64},
		Stream: false,
	})
}

// Generate posts a raw generate request and returns the response text.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	defer c.observe("generate", time.Now())

	var resp generateResponse
	if err := c.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Embed returns the embedding vector for text. A missing vector is an
// error; callers that tolerate absence handle it themselves.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float64, error) {
	defer c.observe("embeddings", time.Now())

	var resp embeddingsResponse
	if err := c.post(ctx, "/api/embeddings", embeddingsRequest{Model: model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("inference endpoint returned an empty embedding")
	}
	return resp.Embedding, nil
}

// Tags lists the models installed on the inference server.
func (c *Client) Tags(ctx context.Context) ([]ModelInfo, error) {
	defer c.observe("tags", time.Now())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach inference endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags response: %w", err)
	}
	return tags.Models, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach inference endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(operation string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.InferenceDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
