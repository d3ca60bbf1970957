// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// MESSAGE NORMALIZER
// =============================================================================

// PlaceholderContent marks a message whose stored record carried no
// extractable text, so gaps in history stay visible instead of silently
// vanishing.
const PlaceholderContent = "[Message with no extractable text content]"

// NormalizeRecord converts one raw remote message record (decoded JSON)
// into a canonical ChatMessage. The second return is false when the
// record is excluded: tool traffic, or a shape too ambiguous to trust.
//
// The memory store has been observed returning at least three record
// shapes, so the rules are ordered and each one is cheap to check:
//  1. tool results are excluded
//  2. a bare string becomes an assistant message
//  3. a content array contributes its first {type:"text"} part, or
//     excludes the record when the array does not match that shape
//  4. a content string is used verbatim
//  5. message, then text fields serve as fallbacks
//  6. a known conversational role with no content gets a placeholder
func NormalizeRecord(raw any) (ChatMessage, bool) {
	// Rule 2: bare string record
	if s, ok := raw.(string); ok {
		return ChatMessage{Role: RoleAssistant, Content: s}, true
	}

	rec, ok := raw.(map[string]any)
	if !ok {
		return ChatMessage{}, false
	}

	role := recordRole(rec)

	// Rule 1: tool traffic never reaches the transcript
	if role == RoleTool || isToolResultType(rec) {
		return ChatMessage{}, false
	}

	msg := ChatMessage{Role: role}
	if id, ok := rec["id"].(string); ok {
		msg.ID = id
	}
	msg.CreatedAt = recordTimestamp(rec)

	switch content := rec["content"].(type) {
	case []any:
		// Rule 3: first text part wins, mismatched arrays are excluded
		if len(content) > 0 {
			text, ok := firstTextPart(content)
			if !ok {
				return ChatMessage{}, false
			}
			msg.Content = text
			return msg, true
		}
	case string:
		// Rule 4
		msg.Content = content
		return msg, true
	}

	// Rule 5: older records use message or text
	for _, key := range []string{"message", "text"} {
		if v, present := rec[key]; present && v != nil {
			msg.Content = stringify(v)
			return msg, true
		}
	}

	// Rule 6: keep the gap diagnosable
	if role.IsConversational() {
		msg.Content = PlaceholderContent
		return msg, true
	}
	return ChatMessage{}, false
}

// NormalizeHistory normalizes a list of raw records, flattening one
// level of {messages:[...]} wrappers before per-record normalization.
// Excluded records are skipped; order is preserved.
func NormalizeHistory(raw []any) []ChatMessage {
	var out []ChatMessage
	for _, item := range raw {
		if wrapper, ok := item.(map[string]any); ok {
			if nested, ok := wrapper["messages"].([]any); ok {
				for _, inner := range nested {
					if msg, ok := NormalizeRecord(inner); ok {
						out = append(out, msg)
					}
				}
				continue
			}
		}
		if msg, ok := NormalizeRecord(item); ok {
			out = append(out, msg)
		}
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

// recordRole reads the record's role, checking type as a fallback key.
// Unknown values default to assistant since the store only returns
// messages belonging to a conversation.
func recordRole(rec map[string]any) Role {
	for _, key := range []string{"role", "type"} {
		if s, ok := rec[key].(string); ok {
			switch Role(s) {
			case RoleUser, RoleAssistant, RoleSystem, RoleTool:
				return Role(s)
			}
		}
	}
	return RoleAssistant
}

// isToolResultType reports whether the record's type marks it as tool
// output regardless of role.
func isToolResultType(rec map[string]any) bool {
	t, ok := rec["type"].(string)
	if !ok {
		return false
	}
	return t == "tool-result" || t == "tool_result" || t == "tool-call" || t == "tool_call"
}

// firstTextPart scans a content array for the first {type:"text",text}
// entry. A non-empty array with no such entry does not match the known
// shape and the caller excludes the record rather than guessing.
func firstTextPart(parts []any) (string, bool) {
	for _, p := range parts {
		part, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := part["type"].(string); t != "text" {
			continue
		}
		if text, ok := part["text"].(string); ok {
			return text, true
		}
	}
	return "", false
}

// stringify renders a fallback field as a string. Non-string values are
// JSON-encoded so structured leftovers stay inspectable.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// recordTimestamp parses createdAt from the shapes the store emits:
// RFC 3339 strings and millisecond epochs.
func recordTimestamp(rec map[string]any) time.Time {
	switch v := rec["createdAt"].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	case float64:
		return time.UnixMilli(int64(v))
	}
	return time.Time{}
}
