// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mastra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/jeranaias/mastra-tui/internal/model"
)

// =============================================================================
// AGENT DISCOVERY
// =============================================================================

// ListAgents fetches the agents the server exposes. The endpoint has
// been observed returning both a JSON array and an object keyed by
// agent ID, so both shapes are accepted.
func (c *Client) ListAgents(ctx context.Context) ([]model.Agent, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/agents", nil, &raw); err != nil {
		return nil, err
	}
	return decodeAgents(raw)
}

// GetAgent fetches one agent's details.
func (c *Client) GetAgent(ctx context.Context, agentID string) (model.Agent, error) {
	var agent model.Agent
	path := "/api/agents/" + url.PathEscape(agentID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &agent); err != nil {
		return model.Agent{}, err
	}
	if agent.ID == "" {
		agent.ID = agentID
	}
	return agent, nil
}

// decodeAgents handles the two response shapes for the agent list.
func decodeAgents(raw json.RawMessage) ([]model.Agent, error) {
	var list []model.Agent
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var byID map[string]model.Agent
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("unexpected agent list shape: %w", err)
	}

	list = make([]model.Agent, 0, len(byID))
	for id, agent := range byID {
		if agent.ID == "" {
			agent.ID = id
		}
		list = append(list, agent)
	}
	// Map iteration order is random; keep the list stable for the UI
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}
