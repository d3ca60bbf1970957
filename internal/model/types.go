// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the canonical conversation types and the
// normalization of heterogeneous remote message records into them.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// IsConversational reports whether the role belongs in the rendered
// transcript. Tool traffic is bookkeeping, not conversation.
func (r Role) IsConversational() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// CHAT MESSAGE
// =============================================================================

// ChatMessage is one message in a conversation. Content is always a
// flattened string by the time a message leaves the normalizer or the
// conversation manager, never a nested structure.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ID        string    `json:"id,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// NewChatMessage creates a message with a fresh local ID and timestamp.
func NewChatMessage(role Role, content string) ChatMessage {
	return ChatMessage{
		Role:      role,
		Content:   content,
		ID:        generateID(),
		CreatedAt: time.Now(),
	}
}

// =============================================================================
// THREAD AND AGENT
// =============================================================================

// Thread is a persisted conversation owned by the remote memory store,
// scoped to an (agent, resource) pair.
type Thread struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	AgentID    string    `json:"agentId"`
	ResourceID string    `json:"resourceId"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Agent describes a remote conversational agent.
type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// DisplayName returns the name, falling back to the ID.
func (a Agent) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// generateID returns a random 16-hex-char identifier for local use.
func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("150405.000")))
	}
	return hex.EncodeToString(b)
}
