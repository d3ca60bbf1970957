// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and the
// normalization of remote message records.
//
// # Key Types
//
//   - ChatMessage: Single message with role, flattened string content,
//     optional id and timestamp
//   - Thread: Persisted conversation scoped to an (agent, resource) pair
//   - Agent: Remote conversational agent description
//   - Role: Message role enumeration (user, assistant, system, tool)
//
// # Normalization
//
// The remote memory store returns message records in several shapes.
// NormalizeRecord converts one raw record into a ChatMessage or
// excludes it; NormalizeHistory does the same for a list, flattening
// one level of {messages:[...]} wrappers:
//
//	msgs := model.NormalizeHistory(rawRecords)
package model
