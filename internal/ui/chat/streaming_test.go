// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"

	"github.com/jeranaias/mastra-tui/internal/model"
)

func snapshot(texts ...string) []model.ChatMessage {
	msgs := make([]model.ChatMessage, 0, len(texts))
	for _, t := range texts {
		msgs = append(msgs, model.ChatMessage{Role: model.RoleAssistant, Content: t})
	}
	return msgs
}

func TestSnapshotBufferEmptyFlush(t *testing.T) {
	sb := NewSnapshotBuffer()

	if _, ok := sb.Flush(); ok {
		t.Error("empty buffer should not flush")
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("empty buffer should not force-flush")
	}
}

func TestSnapshotBufferBatchThreshold(t *testing.T) {
	sb := NewSnapshotBuffer()

	// Below the batch threshold, nothing flushes
	for i := 0; i < 14; i++ {
		sb.Put(snapshot("partial"))
	}
	sb.mu.Lock()
	sb.lastFlush = time.Now() // Keep the time threshold out of the way
	sb.mu.Unlock()
	if _, ok := sb.Flush(); ok {
		t.Fatal("flushed below batch threshold")
	}

	// The 15th delta crosses the threshold
	sb.Put(snapshot("partial", "more"))
	got, ok := sb.Flush()
	if !ok {
		t.Fatal("expected flush at batch threshold")
	}
	if len(got) != 2 {
		t.Errorf("got %d messages, want the latest snapshot with 2", len(got))
	}
}

func TestSnapshotBufferKeepsOnlyLatest(t *testing.T) {
	sb := NewSnapshotBuffer()

	sb.Put(snapshot("first"))
	sb.Put(snapshot("first second"))
	sb.Put(snapshot("first second third"))

	got, ok := sb.ForceFlush()
	if !ok {
		t.Fatal("expected force flush to return a snapshot")
	}
	if got[0].Content != "first second third" {
		t.Errorf("Content = %q, want latest snapshot", got[0].Content)
	}

	// Buffer is drained after a flush
	if _, ok := sb.Flush(); ok {
		t.Error("buffer should be empty after flush")
	}
	if sb.Pending() != 0 {
		t.Errorf("Pending() = %d after flush, want 0", sb.Pending())
	}
}

func TestSnapshotBufferTimeThreshold(t *testing.T) {
	sb := NewSnapshotBuffer()
	sb.Put(snapshot("hello"))

	// Backdate the last flush so the time threshold is satisfied
	sb.mu.Lock()
	sb.lastFlush = time.Now().Add(-100 * time.Millisecond)
	sb.mu.Unlock()

	if _, ok := sb.Flush(); !ok {
		t.Error("expected flush after time threshold elapsed")
	}
}

func TestSnapshotBufferReset(t *testing.T) {
	sb := NewSnapshotBuffer()
	sb.Put(snapshot("pending"))
	sb.Reset()

	if sb.Pending() != 0 {
		t.Errorf("Pending() = %d after Reset, want 0", sb.Pending())
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("reset buffer should have nothing to flush")
	}
}
