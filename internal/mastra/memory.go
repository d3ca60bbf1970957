// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mastra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/jeranaias/mastra-tui/internal/model"
)

// =============================================================================
// MEMORY STORE (THREAD CRUD)
// =============================================================================

// CreateThread creates a persisted thread for the (agent, resource)
// pair with an initial title.
func (c *Client) CreateThread(ctx context.Context, agentID, title, resourceID string) (model.Thread, error) {
	body := map[string]string{
		"title":      title,
		"agentId":    agentID,
		"resourceid": resourceID,
	}
	var thread model.Thread
	if err := c.doJSON(ctx, http.MethodPost, "/api/memory/threads", body, &thread); err != nil {
		return model.Thread{}, err
	}
	if thread.AgentID == "" {
		thread.AgentID = agentID
	}
	if thread.ResourceID == "" {
		thread.ResourceID = resourceID
	}
	return thread, nil
}

// ListThreads fetches all threads for the (agent, resource) pair.
// A server without a configured memory store yields
// ErrMemoryNotInitialized, which callers treat as an empty list.
func (c *Client) ListThreads(ctx context.Context, agentID, resourceID string) ([]model.Thread, error) {
	q := url.Values{}
	q.Set("agentId", agentID)
	q.Set("resourceid", resourceID)

	var threads []model.Thread
	if err := c.doJSON(ctx, http.MethodGet, "/api/memory/threads?"+q.Encode(), nil, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// GetThreadMessages fetches the raw stored message records of a thread.
// Records come back in whatever shape the store wrote them; the caller
// runs them through model.NormalizeHistory.
func (c *Client) GetThreadMessages(ctx context.Context, threadID, agentID string) ([]any, error) {
	q := url.Values{}
	q.Set("agentId", agentID)

	var raw json.RawMessage
	path := "/api/memory/threads/" + url.PathEscape(threadID) + "/messages?" + q.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeRawRecords(raw)
}

// RenameThread updates a thread's title.
func (c *Client) RenameThread(ctx context.Context, threadID, agentID, title, resourceID string) error {
	q := url.Values{}
	q.Set("agentId", agentID)

	body := map[string]string{
		"title":      title,
		"resourceid": resourceID,
	}
	path := "/api/memory/threads/" + url.PathEscape(threadID) + "?" + q.Encode()
	return c.doJSON(ctx, http.MethodPatch, path, body, nil)
}

// DeleteThread removes a thread from the store.
func (c *Client) DeleteThread(ctx context.Context, threadID, agentID string) error {
	q := url.Values{}
	q.Set("agentId", agentID)

	path := "/api/memory/threads/" + url.PathEscape(threadID) + "?" + q.Encode()
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// decodeRawRecords accepts the observed message list shapes: a bare
// array, {messages:[...]}, or {uiMessages:[...]}.
func decodeRawRecords(raw json.RawMessage) ([]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var wrapper map[string]any
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{"messages", "uiMessages"} {
		if nested, ok := wrapper[key].([]any); ok {
			return nested, nil
		}
	}
	return nil, nil
}
