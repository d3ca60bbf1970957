// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mastra provides the HTTP client for a Mastra agent server:
// agent discovery, streaming and non-streaming generation, and the
// thread memory store.
package mastra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/mastra-tui/internal/model"
)

// Configuration constants for the Mastra API.
const (
	// DefaultBaseURL is where a locally started Mastra dev server listens.
	DefaultBaseURL = "http://localhost:4111"

	// DefaultTimeout is the default timeout for request/response calls.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for all short-lived API requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests (no timeout,
	// context-controlled).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		// No timeout for streaming - controlled via context
	}
)

// Error variables for common Mastra API failures.
var (
	// ErrMemoryNotInitialized indicates the server has no memory store
	// configured. Callers treat this as "empty history", not a failure.
	ErrMemoryNotInitialized = errors.New("memory is not initialized")

	// ErrAgentNotFound indicates the requested agent does not exist.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrThreadNotFound indicates the requested thread does not exist.
	ErrThreadNotFound = errors.New("thread not found")
)

// APIError represents an error response from the Mastra server.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("mastra error (HTTP %d): %s", e.Status, e.Message)
}

// Is maps well-known server messages onto sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrMemoryNotInitialized:
		return strings.Contains(e.Message, "Memory is not initialized")
	case ErrAgentNotFound:
		return e.Status == http.StatusNotFound && strings.Contains(e.Message, "agent")
	case ErrThreadNotFound:
		return e.Status == http.StatusNotFound && strings.Contains(e.Message, "thread")
	}
	return false
}

// Client talks to one Mastra server.
type Client struct {
	baseURL   string
	http      *http.Client
	streaming *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a client for the given base URL. An empty URL uses
// the local dev server default.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      sharedHTTPClient,
		streaming: sharedStreamingClient,
		// The server is typically local; the limiter only guards
		// against runaway retry loops.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doJSON issues a rate-limited request with an optional JSON body and
// decodes the response into out (which may be nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: serverMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// serverMessage extracts a human-readable message from an error body.
// The server emits {"error": "..."} or {"message": "..."} or plain text.
func serverMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = "no error detail"
	}
	return msg
}

// chatPayload is the request body shared by the stream and generate
// endpoints.
type chatPayload struct {
	Messages   []model.ChatMessage `json:"messages"`
	ThreadID   string              `json:"threadId,omitempty"`
	ResourceID string              `json:"resourceId,omitempty"`
}
