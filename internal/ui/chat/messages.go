// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines all Bubble Tea message types used by the chat
// interface. Messages are organized into the following categories:
//   - Conversation: message, thread, and artifact snapshots from the manager
//   - Streaming: send completion and render ticks
//   - Agents: agent discovery results
//   - Export: file export completion
//
// All message types follow Bubble Tea conventions and are immutable.
package chat

import (
	"time"

	"github.com/jeranaias/mastra-tui/internal/artifact"
	"github.com/jeranaias/mastra-tui/internal/model"
)

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// MessagesChangedMsg signals that a fresh transcript snapshot is
// waiting in the coalescing buffer. Sent whenever the transcript
// changes, including once per streamed delta; the snapshot itself
// travels through the SnapshotBuffer, not the message.
type MessagesChangedMsg struct{}

// ThreadsChangedMsg delivers the current thread list.
type ThreadsChangedMsg struct {
	Threads []model.Thread
}

// ArtifactChangedMsg delivers the artifact extracted from the latest
// assistant reply. Artifact is nil when the reply produced none.
type ArtifactChangedMsg struct {
	Artifact *artifact.Artifact
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// SendDoneMsg signals that a blocking send has finished, successfully
// or not. The manager has already appended any fallback or error
// notice to the transcript.
type SendDoneMsg struct {
	Err error
}

// StreamTickMsg drives the capped-rate re-render during streaming.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// AGENT MESSAGES
// =============================================================================

// AgentsLoadedMsg delivers the discovered agent list from the server.
type AgentsLoadedMsg struct {
	Agents []model.Agent
	Err    error
}

// AgentSelectedMsg confirms an agent switch.
type AgentSelectedMsg struct {
	Agent model.Agent
	Err   error
}

// =============================================================================
// THREAD MESSAGES
// =============================================================================

// ThreadSelectedMsg confirms a thread switch and history load.
type ThreadSelectedMsg struct {
	ThreadID string
	Err      error
}

// ThreadDeletedMsg confirms a thread deletion.
type ThreadDeletedMsg struct {
	ThreadID string
	Err      error
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportDoneMsg reports the outcome of a conversation or artifact export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// ErrorMsg displays a transient error in the status area.
type ErrorMsg struct {
	Err error
}
