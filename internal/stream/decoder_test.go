// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"reflect"
	"testing"
)

func TestFeedEmitsCompleteLinesOnly(t *testing.T) {
	d := NewLineDecoder()

	frames := d.Feed("0:\"Hello\"\n0:\" wor")
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Tag != "0" || frames[0].RawPayload != "\"Hello\"" {
		t.Errorf("unexpected frame: %+v", frames[0])
	}

	frames = d.Feed("ld\"\n")
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame after completing line, got %d", len(frames))
	}
	if frames[0].RawPayload != "\" world\"" {
		t.Errorf("split line reassembled incorrectly: %q", frames[0].RawPayload)
	}
}

func TestFeedSplitMidTag(t *testing.T) {
	d := NewLineDecoder()

	if got := d.Feed("dat"); got != nil {
		t.Fatalf("incomplete line should emit nothing, got %v", got)
	}
	frames := d.Feed("a: {\"text\":\"hi\"}\n")
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Tag != "data" {
		t.Errorf("tag = %q, want data", frames[0].Tag)
	}
}

func TestFlushHandlesMissingTrailingNewline(t *testing.T) {
	d := NewLineDecoder()

	if got := d.Feed("0:\"tail\""); got != nil {
		t.Fatalf("expected no frames before flush, got %v", got)
	}
	frames := d.Flush()
	if len(frames) != 1 {
		t.Fatalf("flush should emit buffered line, got %d frames", len(frames))
	}
	if frames[0].RawPayload != "\"tail\"" {
		t.Errorf("flushed payload = %q", frames[0].RawPayload)
	}
	if got := d.Flush(); got != nil {
		t.Errorf("second flush should be empty, got %v", got)
	}
}

func TestLinesWithoutColonAreDiscarded(t *testing.T) {
	d := NewLineDecoder()

	frames := d.Feed("no colon here\n0:\"kept\"\n\n")
	if len(frames) != 1 {
		t.Fatalf("expected only the tagged line, got %d frames", len(frames))
	}
	if frames[0].RawPayload != "\"kept\"" {
		t.Errorf("wrong frame survived: %+v", frames[0])
	}
}

func TestPayloadMayContainColons(t *testing.T) {
	d := NewLineDecoder()

	frames := d.Feed("data: {\"text\":\"a:b:c\"}\n")
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].RawPayload != " {\"text\":\"a:b:c\"}" {
		t.Errorf("payload split at wrong colon: %q", frames[0].RawPayload)
	}
}

func TestResetDiscardsPending(t *testing.T) {
	d := NewLineDecoder()
	d.Feed("0:\"stale")
	d.Reset()
	if got := d.Flush(); got != nil {
		t.Errorf("reset should drop buffered tail, flush got %v", got)
	}
}

// decodeAll runs a full decode+interpret pass and collects delta text.
func decodeAll(chunks []string) []string {
	d := NewLineDecoder()
	in := NewInterpreter()
	var deltas []string
	collect := func(events []Event) {
		for _, e := range events {
			if e.Kind == EventTextDelta {
				deltas = append(deltas, e.Text)
			}
		}
	}
	for _, c := range chunks {
		collect(in.InterpretAll(d.Feed(c)))
	}
	collect(in.InterpretAll(d.Flush()))
	return deltas
}

// Splitting the stream at any byte boundary must not change the decoded
// delta sequence.
func TestChunkSplitInvariance(t *testing.T) {
	full := "0:\"Hello\"\ndata: {\"text\":\" there\"}\n9:{\"content\":[{\"type\":\"text\",\"text\":\" friend\"}]}\nnoise\n0:\"!\""

	want := decodeAll([]string{full})
	if got := len(want); got != 4 {
		t.Fatalf("baseline decode produced %d deltas, want 4: %v", got, want)
	}

	for i := 1; i < len(full); i++ {
		got := decodeAll([]string{full[:i], full[i:]})
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("split at byte %d changed output:\n got %v\nwant %v", i, got, want)
		}
	}
}

func TestExampleTwoFeedsSplitMidWord(t *testing.T) {
	stream := "0:\"Hello\"\n0:\" world\"\n"
	cut := len("0:\"Hel")

	got := decodeAll([]string{stream[:cut], stream[cut:]})
	want := []string{"Hello", " world"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("deltas = %v, want %v", got, want)
	}
}
