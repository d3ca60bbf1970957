// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements streaming optimization to provide smooth,
// flicker-free rendering while an assistant reply streams in. The
// conversation manager publishes a full transcript snapshot per delta,
// which can arrive hundreds of times per second. The SnapshotBuffer
// coalesces those snapshots and releases at most one per frame at a
// capped rate.
package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mastra-tui/internal/model"
)

// =============================================================================
// SNAPSHOT BUFFER
// =============================================================================

// SnapshotBuffer coalesces transcript snapshots for efficient rendering.
// Snapshots replace each other; only the newest matters. A snapshot is
// released when either:
// 1. The delta count threshold is reached (e.g., 15 deltas since last flush)
// 2. Enough time has passed since the last flush (e.g., 33ms for 30fps)
//
// This prevents excessive rendering which causes flicker and high CPU
// usage, while maintaining smooth visual updates.
//
// Thread-safety: all operations are protected by a mutex since the
// manager callbacks fire on the streaming goroutine while rendering
// happens in the main Bubble Tea loop.
type SnapshotBuffer struct {
	mu         sync.Mutex
	latest     []model.ChatMessage
	hasLatest  bool
	deltaCount int
	lastFlush  time.Time

	batchSize  int           // Deltas per flush (default: 15)
	minFlushMs time.Duration // Min time between flushes (1000/maxFPS)
}

// NewSnapshotBuffer creates a snapshot buffer with default settings.
// Default configuration:
// - Batch size: 15 deltas (balances latency vs throughput)
// - Max FPS: 30 (smooth but not wasteful)
func NewSnapshotBuffer() *SnapshotBuffer {
	const (
		defaultBatchSize = 15
		defaultMaxFPS    = 30
	)

	return &SnapshotBuffer{
		batchSize:  defaultBatchSize,
		minFlushMs: time.Duration(1000/defaultMaxFPS) * time.Millisecond,
		lastFlush:  time.Now(),
	}
}

// Put stores the newest transcript snapshot, replacing any pending one.
// Called from the streaming goroutine.
func (sb *SnapshotBuffer) Put(messages []model.ChatMessage) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.latest = messages
	sb.hasLatest = true
	sb.deltaCount++
}

// Flush returns the pending snapshot if one is due.
// Returns (snapshot, true) when the delta or time threshold is reached,
// (nil, false) otherwise. Called from the main Bubble Tea loop.
func (sb *SnapshotBuffer) Flush() ([]model.ChatMessage, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.hasLatest || !sb.shouldFlushLocked() {
		return nil, false
	}
	return sb.takeLocked()
}

// ForceFlush immediately returns any pending snapshot regardless of
// thresholds. Use this when a stream completes to ensure the final
// transcript is rendered.
func (sb *SnapshotBuffer) ForceFlush() ([]model.ChatMessage, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.hasLatest {
		return nil, false
	}
	return sb.takeLocked()
}

// Reset clears the buffer without flushing. Use this when switching
// threads or starting a new message.
func (sb *SnapshotBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.latest = nil
	sb.hasLatest = false
	sb.deltaCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of deltas accumulated since the last flush.
func (sb *SnapshotBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.deltaCount
}

// shouldFlushLocked checks flush conditions. Caller must hold the lock.
func (sb *SnapshotBuffer) shouldFlushLocked() bool {
	if sb.deltaCount >= sb.batchSize {
		return true
	}
	return time.Since(sb.lastFlush) >= sb.minFlushMs
}

// takeLocked extracts the pending snapshot and resets counters.
// Caller must hold the lock.
func (sb *SnapshotBuffer) takeLocked() ([]model.ChatMessage, bool) {
	snapshot := sb.latest
	sb.latest = nil
	sb.hasLatest = false
	sb.deltaCount = 0
	sb.lastFlush = time.Now()
	return snapshot, true
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd creates a tea.Cmd that sends StreamTickMsg at 30fps.
// This drives smooth, flicker-free streaming by draining the snapshot
// buffer once per frame.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
