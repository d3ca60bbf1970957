// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mastra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jeranaias/mastra-tui/internal/model"
	"github.com/jeranaias/mastra-tui/internal/stream"
)

// =============================================================================
// STREAMING GENERATION
// =============================================================================

// EventHandler receives interpreted stream events in arrival order.
// Handlers must not block; they run on the stream's goroutine.
type EventHandler func(stream.Event)

// StreamMessage sends a conversation to the agent's streaming endpoint
// and decodes the live response. Every interpreted event is delivered
// to onEvent, ending with exactly one EventEnd or EventError. The
// returned error mirrors the terminal EventError, nil on clean end.
//
// Cancelling the context stops the read loop; buffered partial frames
// are discarded, never interpreted.
func (c *Client) StreamMessage(ctx context.Context, agentID string, messages []model.ChatMessage, threadID, resourceID string, onEvent EventHandler) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := chatPayload{Messages: messages, ThreadID: threadID, ResourceID: resourceID}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	path := c.baseURL + "/api/agents/" + url.PathEscape(agentID) + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, strings.NewReader(string(encoded)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.streaming.Do(req)
	if err != nil {
		err = fmt.Errorf("stream request failed: %w", err)
		onEvent(stream.ErrorEvent(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		apiErr := &APIError{Status: resp.StatusCode, Message: serverMessage(data)}
		onEvent(stream.ErrorEvent(apiErr))
		return apiErr
	}

	return c.pump(ctx, resp.Body, onEvent)
}

// pump reads the response body chunk by chunk through the decoder and
// interpreter. Single consumer, driven by the transport.
func (c *Client) pump(ctx context.Context, body io.Reader, onEvent EventHandler) error {
	decoder := stream.NewLineDecoder()
	interp := stream.NewInterpreter()
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			decoder.Reset()
			onEvent(stream.ErrorEvent(ctx.Err()))
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			for _, e := range interp.InterpretAll(decoder.Feed(string(buf[:n]))) {
				onEvent(e)
			}
		}
		if err == io.EOF {
			for _, e := range interp.InterpretAll(decoder.Flush()) {
				onEvent(e)
			}
			onEvent(stream.EndEvent())
			return nil
		}
		if err != nil {
			decoder.Reset()
			err = fmt.Errorf("stream read failed: %w", err)
			onEvent(stream.ErrorEvent(err))
			return err
		}
	}
}

// =============================================================================
// NON-STREAMING FALLBACK
// =============================================================================

// Generate sends the conversation to the non-streaming endpoint and
// returns the complete response text. Used as the fallback path when
// streaming fails mid-conversation.
func (c *Client) Generate(ctx context.Context, agentID string, messages []model.ChatMessage, threadID, resourceID string) (string, error) {
	payload := chatPayload{Messages: messages, ThreadID: threadID, ResourceID: resourceID}

	var raw json.RawMessage
	path := "/api/agents/" + url.PathEscape(agentID) + "/generate"
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &raw); err != nil {
		return "", err
	}
	return extractGeneratedText(raw), nil
}

// extractGeneratedText pulls response text out of the generate body,
// trying text, then content, then a bare JSON string, then the raw
// body itself so something inspectable always comes back.
func extractGeneratedText(raw json.RawMessage) string {
	var body struct {
		Text    string `json:"text"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Text != "" {
			return body.Text
		}
		if body.Content != "" {
			return body.Content
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
