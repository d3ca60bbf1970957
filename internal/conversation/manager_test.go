// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/jeranaias/mastra-tui/internal/artifact"
	"github.com/jeranaias/mastra-tui/internal/mastra"
	"github.com/jeranaias/mastra-tui/internal/model"
	"github.com/jeranaias/mastra-tui/internal/stream"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeClient struct {
	mu        sync.Mutex
	deltas    []string
	streamErr error
	genText   string
	genErr    error
	block     chan struct{} // when set, StreamMessage waits before ending
	calls     int
}

func (f *fakeClient) StreamMessage(ctx context.Context, agentID string, messages []model.ChatMessage, threadID, resourceID string, onEvent mastra.EventHandler) error {
	f.mu.Lock()
	f.calls++
	deltas, streamErr, block := f.deltas, f.streamErr, f.block
	f.mu.Unlock()

	for _, d := range deltas {
		onEvent(stream.TextDelta(d))
	}
	if block != nil {
		<-block
	}
	if streamErr != nil {
		onEvent(stream.ErrorEvent(streamErr))
		return streamErr
	}
	onEvent(stream.EndEvent())
	return nil
}

func (f *fakeClient) Generate(ctx context.Context, agentID string, messages []model.ChatMessage, threadID, resourceID string) (string, error) {
	return f.genText, f.genErr
}

type fakeMemory struct {
	mu             sync.Mutex
	threads        map[string]*model.Thread
	records        map[string][]any
	nextID         int
	createErr      error
	notInitialized bool
	renames        int
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		threads: make(map[string]*model.Thread),
		records: make(map[string][]any),
	}
}

func (f *fakeMemory) notInitErr() error {
	return &mastra.APIError{Status: 500, Message: "Memory is not initialized"}
}

func (f *fakeMemory) CreateThread(ctx context.Context, agentID, title, resourceID string) (model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Thread{}, f.createErr
	}
	f.nextID++
	t := &model.Thread{ID: fmt.Sprintf("t%d", f.nextID), Title: title, AgentID: agentID, ResourceID: resourceID}
	f.threads[t.ID] = t
	return *t, nil
}

func (f *fakeMemory) ListThreads(ctx context.Context, agentID, resourceID string) ([]model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notInitialized {
		return nil, f.notInitErr()
	}
	var out []model.Thread
	for _, t := range f.threads {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeMemory) GetThreadMessages(ctx context.Context, threadID, agentID string) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notInitialized {
		return nil, f.notInitErr()
	}
	return f.records[threadID], nil
}

func (f *fakeMemory) RenameThread(ctx context.Context, threadID, agentID, title, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renames++
	if t, ok := f.threads[threadID]; ok {
		t.Title = title
	}
	return nil
}

func (f *fakeMemory) DeleteThread(ctx context.Context, threadID, agentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.threads, threadID)
	return nil
}

func newTestManager(client *fakeClient, memory MemoryStore) *Manager {
	m := NewManager(client, memory, nil, "resource-1")
	_ = m.SelectAgent(context.Background(), model.Agent{ID: "a1", Name: "Helper"})
	return m
}

// =============================================================================
// TESTS
// =============================================================================

func TestSendMessageAccumulatesDeltas(t *testing.T) {
	client := &fakeClient{deltas: []string{"Hello", " world"}}
	m := newTestManager(client, newFakeMemory())

	if err := m.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	msgs := m.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user + assistant, got %d messages", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "hi" {
		t.Errorf("user message = %+v", msgs[0])
	}
	if msgs[1].Role != model.RoleAssistant || msgs[1].Content != "Hello world" {
		t.Errorf("assistant message = %+v", msgs[1])
	}
	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}
}

func TestImplicitThreadCreateUsesTempTitle(t *testing.T) {
	client := &fakeClient{deltas: []string{"reply"}}
	memory := newFakeMemory()
	m := newTestManager(client, memory)

	if err := m.SendMessage(context.Background(), "a rather long first question"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if m.CurrentThreadID() == "" {
		t.Fatal("expected an implicit thread")
	}

	// After the turn the temp title has been replaced by the reply title
	threads := m.Threads()
	if len(threads) != 1 {
		t.Fatalf("threads = %+v", threads)
	}
	if threads[0].Title != "reply" {
		t.Errorf("title = %q, want reply-derived", threads[0].Title)
	}
}

func TestAutoRenameFiresAtMostOnce(t *testing.T) {
	client := &fakeClient{deltas: []string{"Sure, here is the answer"}}
	memory := newFakeMemory()
	m := newTestManager(client, memory)

	// Existing thread with the stock placeholder title
	thread, _ := memory.CreateThread(context.Background(), "a1", "新しい会話", "resource-1")
	if err := m.RefreshThreads(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.SelectThread(context.Background(), thread.ID); err != nil {
		t.Fatal(err)
	}

	if err := m.SendMessage(context.Background(), "q1"); err != nil {
		t.Fatal(err)
	}
	threads := m.Threads()
	if threads[0].Title != "Sure, here..." {
		t.Errorf("title = %q, want first 10 runes + ellipsis", threads[0].Title)
	}
	if memory.renames != 1 {
		t.Fatalf("renames = %d, want 1", memory.renames)
	}

	// Second completed stream must not rename again
	if err := m.SendMessage(context.Background(), "q2"); err != nil {
		t.Fatal(err)
	}
	if memory.renames != 1 {
		t.Errorf("renames = %d after second turn, want still 1", memory.renames)
	}
}

func TestEmptyReplyGetsEmptyReplyTitle(t *testing.T) {
	client := &fakeClient{}
	memory := newFakeMemory()
	m := newTestManager(client, memory)

	if err := m.SendMessage(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	threads := m.Threads()
	if len(threads) != 1 || threads[0].Title != "(空の応答)" {
		t.Errorf("threads = %+v", threads)
	}
}

func TestSendRejectedWhileStreaming(t *testing.T) {
	block := make(chan struct{})
	client := &fakeClient{block: block}
	m := newTestManager(client, newFakeMemory())

	done := make(chan error, 1)
	go func() { done <- m.SendMessage(context.Background(), "first") }()

	// Wait for the first send to reach the streaming state
	for m.State() != StateStreaming {
		runtime.Gosched()
	}

	if err := m.SendMessage(context.Background(), "second"); !errors.Is(err, ErrStreamBusy) {
		t.Errorf("concurrent send err = %v, want ErrStreamBusy", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := m.SendMessage(context.Background(), "third"); err != nil {
		t.Errorf("send after completion: %v", err)
	}
}

func TestDegradedModeOnThreadCreateFailure(t *testing.T) {
	client := &fakeClient{deltas: []string{"still works"}}
	memory := newFakeMemory()
	memory.createErr = errors.New("store down")
	m := newTestManager(client, memory)

	if err := m.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage should survive create failure: %v", err)
	}
	if m.CurrentThreadID() != "" {
		t.Error("expected memory-less mode, got a thread")
	}
	if !m.MemoryWarning() {
		t.Error("expected the memory warning flag")
	}

	msgs := m.Messages()
	last := msgs[len(msgs)-1]
	if last.Content != "still works" {
		t.Errorf("assistant reply = %q", last.Content)
	}

	// Later sends stay usable and never retry thread creation
	if err := m.SendMessage(context.Background(), "again"); err != nil {
		t.Errorf("second send in degraded mode: %v", err)
	}
}

func TestSelectThreadMemoryNotInitialized(t *testing.T) {
	client := &fakeClient{}
	memory := newFakeMemory()
	memory.notInitialized = true
	m := newTestManager(client, memory)

	if err := m.SelectThread(context.Background(), "t9"); err != nil {
		t.Fatalf("not-initialized must not be an error: %v", err)
	}
	if len(m.Messages()) != 0 {
		t.Errorf("expected empty history, got %v", m.Messages())
	}
	if !m.MemoryWarning() {
		t.Error("expected the memory warning flag")
	}
}

func TestSelectThreadNormalizesHistory(t *testing.T) {
	client := &fakeClient{}
	memory := newFakeMemory()
	m := newTestManager(client, memory)

	thread, _ := memory.CreateThread(context.Background(), "a1", "old", "resource-1")
	memory.records[thread.ID] = []any{
		map[string]any{"role": "user", "content": "question"},
		map[string]any{"role": "tool", "content": "hidden"},
		map[string]any{"role": "assistant", "content": []any{
			map[string]any{"type": "text", "text": "answer"},
		}},
	}

	if err := m.SelectThread(context.Background(), thread.ID); err != nil {
		t.Fatal(err)
	}
	msgs := m.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected tool record excluded, got %d messages", len(msgs))
	}
	if msgs[1].Content != "answer" {
		t.Errorf("normalized content = %q", msgs[1].Content)
	}
}

func TestStreamErrorFallsBackToGenerate(t *testing.T) {
	client := &fakeClient{
		deltas:    []string{"partial"},
		streamErr: errors.New("connection reset"),
		genText:   "full response from fallback",
	}
	m := newTestManager(client, newFakeMemory())

	if err := m.SendMessage(context.Background(), "q"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	msgs := m.Messages()
	last := msgs[len(msgs)-1]
	if last.Content != "full response from fallback" {
		t.Errorf("fallback should replace the draft, got %q", last.Content)
	}
}

func TestDoubleFailureBecomesSystemMessage(t *testing.T) {
	client := &fakeClient{
		streamErr: errors.New("connection reset"),
		genErr:    errors.New("also down"),
	}
	m := newTestManager(client, newFakeMemory())

	if err := m.SendMessage(context.Background(), "q"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	msgs := m.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleSystem {
		t.Errorf("expected a conversational system message, got %+v", last)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %v, conversation must stay usable", m.State())
	}
}

func TestArtifactPublishedOnStreamEnd(t *testing.T) {
	client := &fakeClient{deltas: []string{"```html\n<div>x</div>\n```"}}
	m := newTestManager(client, newFakeMemory())

	var published *artifact.Artifact
	m.SetOnArtifactChanged(func(a *artifact.Artifact) { published = a })

	if err := m.SendMessage(context.Background(), "make html"); err != nil {
		t.Fatal(err)
	}
	a := m.Artifact()
	if a == nil || a.Content != "<div>x</div>" {
		t.Errorf("artifact = %+v", a)
	}
	if published == nil || published.Type != artifact.TypeHTML {
		t.Errorf("subscriber got %+v", published)
	}
}

func TestDeleteCurrentThreadResets(t *testing.T) {
	client := &fakeClient{deltas: []string{"r"}}
	memory := newFakeMemory()
	m := newTestManager(client, memory)

	if err := m.SendMessage(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	id := m.CurrentThreadID()
	if id == "" {
		t.Fatal("expected a thread")
	}

	if err := m.DeleteThread(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if m.CurrentThreadID() != "" {
		t.Error("current thread should reset")
	}
	if m.State() != StateNoThread {
		t.Errorf("state = %v, want no-thread", m.State())
	}
	if len(m.Messages()) != 0 {
		t.Error("transcript should be cleared")
	}
	if len(m.Threads()) != 0 {
		t.Errorf("thread cache should refresh, got %+v", m.Threads())
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sure, here is the answer", "Sure, here..."},
		{"short", "short"},
		{"こんにちは世界、今日はいい天気ですね", "こんにちは世界、今日..."},
		{"", ""},
	}
	for _, tt := range tests {
		if got := deriveTitle(tt.in); got != tt.want {
			t.Errorf("deriveTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
