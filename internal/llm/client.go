// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package llm talks to OpenAI-compatible chat completion and embedding
// endpoints such as Together.ai.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pdf-toolbox/internal/config"
	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/resilience"
	"pdf-toolbox/internal/security"
)

// Completer produces a chat completion for a single user prompt
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Embedder turns texts into vectors
type Embedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// Client is an OpenAI-compatible API client
type Client struct {
	baseURL     string
	apiKey      *security.SecureString
	apiKeyEnv   string
	model       string
	temperature float64

	httpClient *http.Client
	retry      resilience.RetryConfig
	breakers   *resilience.Breakers
	observer   *observability.StandardObserver
}

// Message is a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewClient builds a client from the llm config section. The API key is read
// from the environment variable the config names.
func NewClient(cfg config.LLMConfig, observer *observability.StandardObserver) *Client {
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	apiKey := security.NewSecureString(cfg.APIKey())
	observer.Logger().WithField("key", apiKey.Redacted()).Debugf("LLM client for %s using %s", cfg.BaseURL, cfg.APIKeyEnv)

	retry := resilience.LLMRetryConfig(cfg.MaxRetries)
	retry.OnRetry = func(attempt int, err error) {
		observer.Logger().WithField("attempt", attempt).WithError(err).Warn("retrying LLM request")
	}
	breakers := resilience.NewBreakers(func(endpoint string) resilience.CircuitBreakerConfig {
		bc := resilience.DefaultCircuitBreakerConfig(endpoint)
		bc.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
			observer.Logger().WithField("endpoint", name).Warnf("LLM circuit %s -> %s", from, to)
		}
		return bc
	})

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      apiKey,
		apiKeyEnv:   cfg.APIKeyEnv,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		retry:       retry,
		breakers:    breakers,
		observer:    observer,
	}
}

// Close wipes the API key. Later requests fail as if no key were set.
func (c *Client) Close() error {
	c.apiKey.Clear()
	return nil
}

// Model returns the chat model name
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the trimmed reply
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	finish := c.observer.StartTiming("llm", "complete", c.model)

	req := chatRequest{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	}
	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", c.model, req, &resp); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return "", err
	}
	if len(resp.Choices) == 0 {
		err := resilience.NewUpstreamError("no choices in completion response", nil)
		finish(false, map[string]interface{}{"error": err.Error()})
		return "", err
	}

	finish(true, map[string]interface{}{"max_tokens": maxTokens})
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed returns one vector per input, in input order
func (c *Client) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	finish := c.observer.StartTiming("llm", "embed", model)

	var resp embeddingResponse
	if err := c.post(ctx, "/embeddings", model, embeddingRequest{Model: model, Input: inputs}, &resp); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	out, err := orderEmbeddings(resp, len(inputs))
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	finish(true, map[string]interface{}{"inputs": len(inputs)})
	return out, nil
}

// orderEmbeddings places each vector at its index. When the indices are not
// a permutation of 0..n-1 the response order is used instead.
func orderEmbeddings(resp embeddingResponse, n int) ([][]float32, error) {
	if len(resp.Data) != n {
		return nil, resilience.NewUpstreamError(fmt.Sprintf("embedding response has %d vectors for %d inputs", len(resp.Data), n), nil)
	}
	for i, d := range resp.Data {
		if len(d.Embedding) == 0 {
			return nil, resilience.NewUpstreamError(fmt.Sprintf("embedding %d in response is empty", i), nil)
		}
	}

	out := make([][]float32, n)
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= n || out[d.Index] != nil {
			out = nil
			break
		}
		out[d.Index] = d.Embedding
	}
	if out == nil {
		out = make([][]float32, n)
		for i, d := range resp.Data {
			out[i] = d.Embedding
		}
	}
	return out, nil
}

// post sends body to path and decodes the reply into out. Each path and model
// pair has its own circuit breaker.
func (c *Client) post(ctx context.Context, path, model string, body, out interface{}) error {
	if c.apiKey.IsEmpty() {
		return resilience.NewInvalidInputError("%s is not set; add it to your environment or .env file", c.apiKeyEnv)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimPrefix(path, "/") + " " + model
	data, err := resilience.RetryWithResult(ctx, c.retry, c.breakers.For(endpoint), func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, resilience.NewPermanentError("failed to build request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey.String())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError("failed to read response", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, resilience.ClassifyHTTPStatus(resp.StatusCode, string(data))
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resilience.NewUpstreamError("failed to decode response", err)
	}
	return nil
}
