package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/agentrouter/core"
)

// CLIPConfig configures a CLIPClient.
type CLIPConfig struct {
	// BaseURL of the encoding service, e.g. http://clip:8000 (required).
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout for each request (default: 30s).
	Timeout time.Duration
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

// CLIPClient talks to a CLIP-style multimodal encoding service exposing
//
//	POST {base}/encode/text  {"text": "..."} -> {"embedding": [...]}
//	POST {base}/encode/image {"url":  "..."} -> {"embedding": [...]}
//
// Text and image vectors share one embedding space.
type CLIPClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type clipResponse struct {
	Embedding []float32 `json:"embedding"`
}

type clipErrorResponse struct {
	Error string `json:"error"`
}

// NewCLIPClient creates a CLIP encoding client.
func NewCLIPClient(cfg CLIPConfig) (*CLIPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for CLIP client")
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &CLIPClient{client: client, baseURL: strings.TrimRight(cfg.BaseURL, "/"), apiKey: cfg.APIKey}, nil
}

// EncodeText implements core.TextEncoder.
func (c *CLIPClient) EncodeText(ctx context.Context, text string) (core.Embedding, error) {
	return c.post(ctx, "/encode/text", map[string]string{"text": text})
}

// EncodeImage implements core.ImageEncoder.
func (c *CLIPClient) EncodeImage(ctx context.Context, url string) (core.Embedding, error) {
	return c.post(ctx, "/encode/image", map[string]string{"url": url})
}

func (c *CLIPClient) post(ctx context.Context, path string, body any) (core.Embedding, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clip request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp clipErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("clip API error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("clip API error (status %d): %s", resp.StatusCode, string(raw))
	}

	var out clipResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("clip API returned no embedding")
	}
	return core.Embedding(out.Embedding), nil
}
