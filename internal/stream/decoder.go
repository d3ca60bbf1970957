// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the line-tagged text protocol emitted by the
// Mastra agent streaming endpoint into typed frames and events.
package stream

import (
	"strings"
)

// =============================================================================
// FRAME DECODER
// =============================================================================

// Frame is one decoded (tag, payload) unit from the raw stream.
// Frames are ephemeral and consumed within a single decode pass.
type Frame struct {
	Tag        string
	RawPayload string
}

// LineDecoder accumulates arbitrarily-chunked text and emits complete
// lines as frames. A chunk may split a line anywhere, including mid-tag,
// so incomplete tails are buffered until the next Feed or a Flush.
type LineDecoder struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	pending strings.Builder
}

// NewLineDecoder creates a decoder with an empty pending buffer.
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{}
}

// Feed appends a chunk to the pending buffer and returns all frames
// formed by complete lines. The final fragment after the last newline
// stays buffered. Feed never fails; unparseable lines are dropped.
func (d *LineDecoder) Feed(chunk string) []Frame {
	if chunk == "" {
		return nil
	}
	d.pending.WriteString(chunk)

	buf := d.pending.String()
	idx := strings.LastIndexByte(buf, '\n')
	if idx < 0 {
		return nil
	}

	complete := buf[:idx]
	rest := buf[idx+1:]

	d.pending.Reset()
	d.pending.WriteString(rest)

	var frames []Frame
	for _, line := range strings.Split(complete, "\n") {
		if f, ok := splitFrame(line); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Flush drains the pending buffer, treating any remaining content as a
// final candidate line. Handles streams that end without a trailing
// newline. The decoder is reusable afterward.
func (d *LineDecoder) Flush() []Frame {
	if d.pending.Len() == 0 {
		return nil
	}
	line := d.pending.String()
	d.pending.Reset()

	if f, ok := splitFrame(line); ok {
		return []Frame{f}
	}
	return nil
}

// Reset discards buffered input. Called at stream start and after
// cancellation so a stale tail never leaks into the next stream.
func (d *LineDecoder) Reset() {
	d.pending.Reset()
}

// splitFrame splits a candidate line at the first ':' into tag and
// payload. A line with no ':' is not a frame and is discarded.
func splitFrame(line string) (Frame, bool) {
	if line == "" {
		return Frame{}, false
	}
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return Frame{}, false
	}
	return Frame{
		Tag:        line[:idx],
		RawPayload: line[idx+1:],
	}, true
}
