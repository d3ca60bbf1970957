// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventKind discriminates the semantic events produced from frames.
type EventKind int

const (
	// EventTextDelta carries an incremental piece of assistant text.
	EventTextDelta EventKind = iota
	// EventError signals a stream-level failure (transport, not grammar).
	EventError
	// EventEnd signals explicit completion or transport close.
	EventEnd
)

// Event is the semantic result of interpreting frames. Text is set for
// EventTextDelta, Err for EventError.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// TextDelta builds a text delta event.
func TextDelta(text string) Event {
	return Event{Kind: EventTextDelta, Text: text}
}

// ErrorEvent builds a stream-level error event.
func ErrorEvent(err error) Event {
	return Event{Kind: EventError, Err: err}
}

// EndEvent builds a completion event.
func EndEvent() Event {
	return Event{Kind: EventEnd}
}

// =============================================================================
// FRAME INTERPRETER
// =============================================================================

// frameMatcher attempts to interpret one frame. Returns the produced
// events and whether the frame was claimed. Matchers never fail: a
// payload a matcher cannot make sense of is simply not claimed.
type frameMatcher interface {
	Match(f Frame) ([]Event, bool)
}

// Interpreter classifies frames into events using an ordered list of
// matchers. The wire grammar varies between at least three shapes in
// practice, so each shape gets its own matcher and a malformed frame
// never aborts interpretation of subsequent frames.
type Interpreter struct {
	matchers []frameMatcher
}

// NewInterpreter creates an interpreter with the default matcher order:
// quoted text, then SSE data, then structured content.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		matchers: []frameMatcher{
			quotedTextMatcher{},
			sseDataMatcher{},
			structuredContentMatcher{},
		},
	}
}

// Interpret maps one frame to zero or more events. Unrecognized or
// malformed frames produce no events and no error.
func (in *Interpreter) Interpret(f Frame) []Event {
	for _, m := range in.matchers {
		if events, ok := m.Match(f); ok {
			return events
		}
	}
	return nil
}

// InterpretAll interprets a batch of frames, preserving order.
func (in *Interpreter) InterpretAll(frames []Frame) []Event {
	var events []Event
	for _, f := range frames {
		events = append(events, in.Interpret(f)...)
	}
	return events
}

// =============================================================================
// MATCHERS
// =============================================================================

// quotedTextMatcher handles frames whose payload is a JSON-quoted string,
// the dominant shape on the wire (`0:"Hello"`). Only the escaped quote is
// unescaped; other escapes pass through untouched, matching the producer.
type quotedTextMatcher struct{}

func (quotedTextMatcher) Match(f Frame) ([]Event, bool) {
	p := f.RawPayload
	if len(p) < 2 || p[0] != '"' || p[len(p)-1] != '"' {
		return nil, false
	}
	text := strings.ReplaceAll(p[1:len(p)-1], `\"`, `"`)
	if text == "" {
		return nil, true
	}
	return []Event{TextDelta(text)}, true
}

// sseDataMatcher handles SSE-style frames (`data: {...}`). The payload
// is JSON; text is read from the first present field among text,
// content and delta. Parse failures drop the frame silently.
type sseDataMatcher struct{}

func (sseDataMatcher) Match(f Frame) ([]Event, bool) {
	if f.Tag != "data" {
		return nil, false
	}

	var body struct {
		Text    string `json:"text"`
		Content string `json:"content"`
		Delta   string `json:"delta"`
	}
	payload := strings.TrimSpace(f.RawPayload)
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		// Malformed data frame, drop without terminating the stream
		return nil, true
	}

	switch {
	case body.Text != "":
		return []Event{TextDelta(body.Text)}, true
	case body.Content != "":
		return []Event{TextDelta(body.Content)}, true
	case body.Delta != "":
		return []Event{TextDelta(body.Delta)}, true
	}
	return nil, true
}

// structuredContentMatcher handles frames whose payload is a JSON object
// carrying a content array of typed parts. Each {type:"text"} entry
// yields one delta, in array order.
type structuredContentMatcher struct{}

func (structuredContentMatcher) Match(f Frame) ([]Event, bool) {
	payload := strings.TrimSpace(f.RawPayload)
	if payload == "" {
		return nil, false
	}
	if payload[0] != '{' && payload[0] != '[' {
		return nil, false
	}

	var body struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, false
	}
	if len(body.Content) == 0 {
		return nil, false
	}

	var events []Event
	for _, part := range body.Content {
		if part.Type == "text" && part.Text != "" {
			events = append(events, TextDelta(part.Text))
		}
	}
	return events, true
}
