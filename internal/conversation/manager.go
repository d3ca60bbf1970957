// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation orchestrates the chat lifecycle: thread CRUD
// against the memory store, live stream routing into message state,
// one-time title auto-naming, and artifact publication.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/mastra-tui/internal/artifact"
	"github.com/jeranaias/mastra-tui/internal/mastra"
	"github.com/jeranaias/mastra-tui/internal/model"
	"github.com/jeranaias/mastra-tui/internal/stream"
	"github.com/jeranaias/mastra-tui/internal/util"
)

// =============================================================================
// STATES AND ERRORS
// =============================================================================

// State tracks where an open conversation is in its lifecycle.
type State int

const (
	// StateNoThread means no persisted thread exists yet. Memory-less
	// conversations stay here for their whole life.
	StateNoThread State = iota
	// StateThreadCreated means a thread exists but no turn is running.
	StateThreadCreated
	// StateStreaming means a send is in flight.
	StateStreaming
	// StateIdle means at least one turn completed.
	StateIdle
	// StateDeleted is terminal for the previously selected thread.
	StateDeleted
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateNoThread:
		return "no-thread"
	case StateThreadCreated:
		return "thread-created"
	case StateStreaming:
		return "streaming"
	case StateIdle:
		return "idle"
	case StateDeleted:
		return "deleted"
	}
	return "unknown"
}

var (
	// ErrNoAgent indicates no agent has been selected yet.
	ErrNoAgent = errors.New("no agent selected")

	// ErrStreamBusy indicates a send while the previous stream has not
	// finished. At most one stream is in flight per conversation.
	ErrStreamBusy = errors.New("a response stream is already in flight")

	// ErrEmptyMessage indicates a send with no content.
	ErrEmptyMessage = errors.New("message is empty")
)

// Known placeholder titles eligible for one-time auto-rename.
const (
	placeholderNewConversation = "新しい会話"
	emptyReplyTitle            = "(空の応答)"
)

// titleRunes is how much of a first reply becomes the thread title.
const titleRunes = 10

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// AgentClient is the agent endpoint pair used for a turn.
type AgentClient interface {
	StreamMessage(ctx context.Context, agentID string, messages []model.ChatMessage, threadID, resourceID string, onEvent mastra.EventHandler) error
	Generate(ctx context.Context, agentID string, messages []model.ChatMessage, threadID, resourceID string) (string, error)
}

// MemoryStore is the remote thread store.
type MemoryStore interface {
	CreateThread(ctx context.Context, agentID, title, resourceID string) (model.Thread, error)
	ListThreads(ctx context.Context, agentID, resourceID string) ([]model.Thread, error)
	GetThreadMessages(ctx context.Context, threadID, agentID string) ([]any, error)
	RenameThread(ctx context.Context, threadID, agentID, title, resourceID string) error
	DeleteThread(ctx context.Context, threadID, agentID string) error
}

// Archiver receives finished turns for local persistence. Archival is
// best effort; failures never disturb the conversation.
type Archiver interface {
	Archive(threadID, agentID, title string, messages []model.ChatMessage) error
}

// Context scopes every remote call. ResourceID is generated once per
// installation and stays stable across restarts.
type Context struct {
	ResourceID string
	AgentID    string
	AgentName  string
	ThreadID   string
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns all mutable conversation state: the thread cache, the
// live message list, and the current artifact. No other component
// mutates these directly.
type Manager struct {
	mu sync.Mutex

	client  AgentClient
	memory  MemoryStore
	archive Archiver

	cctx  Context
	state State

	messages []model.ChatMessage
	// draft indexes the streaming assistant placeholder, -1 when no
	// stream is active. Only the draft message is ever mutated, and
	// only while streaming.
	draft int

	threads    []model.Thread
	memoryless bool
	warnMemory bool
	// tempTitle remembers the implicit-create title so it stays
	// eligible for the one-time auto-rename.
	tempTitle string

	current *artifact.Artifact

	// Callbacks are invoked outside the lock.
	onMessages func([]model.ChatMessage)
	onArtifact func(*artifact.Artifact)
	onThreads  func([]model.Thread)
}

// NewManager creates a manager. memory and archive may be nil, in which
// case the conversation runs memory-less from the start.
func NewManager(client AgentClient, memory MemoryStore, archive Archiver, resourceID string) *Manager {
	return &Manager{
		client:     client,
		memory:     memory,
		archive:    archive,
		cctx:       Context{ResourceID: resourceID},
		state:      StateNoThread,
		draft:      -1,
		memoryless: memory == nil,
	}
}

// SetOnMessagesChanged registers the message list subscriber.
func (m *Manager) SetOnMessagesChanged(fn func([]model.ChatMessage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMessages = fn
}

// SetOnArtifactChanged registers the artifact subscriber. Updates are
// replace-only: a new artifact supersedes the previous one.
func (m *Manager) SetOnArtifactChanged(fn func(*artifact.Artifact)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onArtifact = fn
}

// SetOnThreadsChanged registers the thread list subscriber.
func (m *Manager) SetOnThreadsChanged(fn func([]model.Thread)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onThreads = fn
}

// =============================================================================
// READ MODELS
// =============================================================================

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Messages returns a snapshot of the conversation.
func (m *Manager) Messages() []model.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Threads returns the cached thread list.
func (m *Manager) Threads() []model.Thread {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Thread, len(m.threads))
	copy(out, m.threads)
	return out
}

// Artifact returns the current artifact, nil when none.
func (m *Manager) Artifact() *artifact.Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentThreadID returns the active thread ID, empty in memory-less
// mode or before the first send.
func (m *Manager) CurrentThreadID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cctx.ThreadID
}

// MemoryWarning reports whether the store answered "not initialized"
// at some point, meaning history is volatile.
func (m *Manager) MemoryWarning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warnMemory || m.memoryless
}

// =============================================================================
// AGENT AND THREAD SELECTION
// =============================================================================

// SelectAgent switches the conversation to an agent and refreshes the
// thread list for it. Clears any current thread and transcript.
func (m *Manager) SelectAgent(ctx context.Context, agent model.Agent) error {
	m.mu.Lock()
	m.cctx.AgentID = agent.ID
	m.cctx.AgentName = agent.DisplayName()
	m.cctx.ThreadID = ""
	m.state = StateNoThread
	m.messages = nil
	m.draft = -1
	m.current = nil
	m.tempTitle = ""
	m.mu.Unlock()

	m.notifyMessages()
	return m.RefreshThreads(ctx)
}

// RefreshThreads reloads the thread cache from the store.
func (m *Manager) RefreshThreads(ctx context.Context) error {
	m.mu.Lock()
	agentID, resourceID := m.cctx.AgentID, m.cctx.ResourceID
	memory := m.memory
	m.mu.Unlock()

	if memory == nil || agentID == "" {
		return nil
	}

	threads, err := memory.ListThreads(ctx, agentID, resourceID)
	if err != nil {
		if errors.Is(err, mastra.ErrMemoryNotInitialized) {
			m.mu.Lock()
			m.warnMemory = true
			m.threads = nil
			m.mu.Unlock()
			m.notifyThreads()
			return nil
		}
		return err
	}

	m.mu.Lock()
	m.threads = threads
	m.mu.Unlock()
	m.notifyThreads()
	return nil
}

// SelectThread loads a thread's normalized history and makes it
// current. A store reporting "memory not initialized" yields an empty
// but valid thread with the warning flag set.
func (m *Manager) SelectThread(ctx context.Context, threadID string) error {
	m.mu.Lock()
	if m.state == StateStreaming {
		m.mu.Unlock()
		return ErrStreamBusy
	}
	agentID := m.cctx.AgentID
	memory := m.memory
	m.mu.Unlock()

	if agentID == "" {
		return ErrNoAgent
	}

	var history []model.ChatMessage
	warn := false
	if memory != nil {
		raw, err := memory.GetThreadMessages(ctx, threadID, agentID)
		if err != nil {
			if !errors.Is(err, mastra.ErrMemoryNotInitialized) {
				return err
			}
			warn = true
		} else {
			history = model.NormalizeHistory(raw)
		}
	}

	m.mu.Lock()
	m.cctx.ThreadID = threadID
	m.state = StateThreadCreated
	m.messages = history
	m.draft = -1
	m.current = nil
	m.tempTitle = ""
	if warn {
		m.warnMemory = true
	}
	m.mu.Unlock()

	m.notifyMessages()
	m.notifyArtifact()
	return nil
}

// NewThread resets to an empty, not-yet-persisted conversation.
func (m *Manager) NewThread() {
	m.mu.Lock()
	if m.state == StateStreaming {
		m.mu.Unlock()
		return
	}
	m.cctx.ThreadID = ""
	m.state = StateNoThread
	m.messages = nil
	m.draft = -1
	m.current = nil
	m.tempTitle = ""
	m.mu.Unlock()

	m.notifyMessages()
	m.notifyArtifact()
}

// DeleteThread removes a thread remotely and refreshes the cache. If
// the deleted thread was current, the conversation resets.
func (m *Manager) DeleteThread(ctx context.Context, threadID string) error {
	m.mu.Lock()
	agentID := m.cctx.AgentID
	memory := m.memory
	wasCurrent := m.cctx.ThreadID == threadID
	m.mu.Unlock()

	if memory == nil {
		return nil
	}
	if err := memory.DeleteThread(ctx, threadID, agentID); err != nil {
		return err
	}

	if wasCurrent {
		m.mu.Lock()
		m.cctx.ThreadID = ""
		m.state = StateNoThread
		m.messages = nil
		m.draft = -1
		m.current = nil
		m.tempTitle = ""
		m.mu.Unlock()
		m.notifyMessages()
		m.notifyArtifact()
	}
	return m.RefreshThreads(ctx)
}

// =============================================================================
// SENDING
// =============================================================================

// SendMessage runs one full turn: optimistic user + placeholder
// assistant messages, the live stream, and the end-of-stream
// finalization (title auto-rename, artifact extraction, archival).
// Blocks until the turn completes; callers run it off the UI loop.
//
// Rejected with ErrStreamBusy while a previous turn is still running.
func (m *Manager) SendMessage(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyMessage
	}

	m.mu.Lock()
	if m.cctx.AgentID == "" {
		m.mu.Unlock()
		return ErrNoAgent
	}
	if m.state == StateStreaming {
		m.mu.Unlock()
		return ErrStreamBusy
	}
	m.state = StateStreaming
	agentID := m.cctx.AgentID
	resourceID := m.cctx.ResourceID
	needThread := m.cctx.ThreadID == "" && !m.memoryless && m.memory != nil
	m.mu.Unlock()

	if needThread {
		m.createThreadForFirstSend(ctx, agentID, resourceID, text)
	}

	m.mu.Lock()
	threadID := m.cctx.ThreadID
	m.messages = append(m.messages,
		model.NewChatMessage(model.RoleUser, text),
		model.NewChatMessage(model.RoleAssistant, ""))
	m.draft = len(m.messages) - 1
	outbound := make([]model.ChatMessage, len(m.messages)-1)
	copy(outbound, m.messages[:len(m.messages)-1])
	m.mu.Unlock()
	m.notifyMessages()

	streamErr := m.client.StreamMessage(ctx, agentID, outbound, threadID, resourceID, func(e stream.Event) {
		if e.Kind == stream.EventTextDelta {
			m.appendDelta(e.Text)
		}
	})

	if streamErr != nil {
		m.fallbackGenerate(ctx, agentID, outbound, threadID, resourceID, streamErr)
	}

	m.finalizeTurn(ctx)
	return nil
}

// createThreadForFirstSend creates the backing thread with a temporary
// title derived from the user text. Failure drops the conversation
// into memory-less mode instead of blocking the send.
func (m *Manager) createThreadForFirstSend(ctx context.Context, agentID, resourceID, text string) {
	title := deriveTitle(text)

	thread, err := m.memory.CreateThread(ctx, agentID, title, resourceID)
	if err != nil {
		m.mu.Lock()
		m.memoryless = true
		m.messages = append(m.messages, model.NewChatMessage(model.RoleSystem,
			"Thread creation failed; this conversation will not be saved."))
		m.mu.Unlock()
		m.notifyMessages()
		return
	}

	m.mu.Lock()
	m.cctx.ThreadID = thread.ID
	m.tempTitle = title
	m.mu.Unlock()
	m.RefreshThreads(ctx)
}

// appendDelta appends streamed text to the draft message. Only the
// draft may be mutated, and only while streaming.
func (m *Manager) appendDelta(text string) {
	m.mu.Lock()
	if m.state != StateStreaming || m.draft < 0 || m.draft >= len(m.messages) {
		m.mu.Unlock()
		return
	}
	m.messages[m.draft].Content += text
	m.mu.Unlock()
	m.notifyMessages()
}

// fallbackGenerate retries the turn on the non-streaming endpoint after
// a stream failure. A second failure becomes a conversational system
// message, never a hard error.
func (m *Manager) fallbackGenerate(ctx context.Context, agentID string, outbound []model.ChatMessage, threadID, resourceID string, streamErr error) {
	text, err := m.client.Generate(ctx, agentID, outbound, threadID, resourceID)
	if err == nil && text != "" {
		m.mu.Lock()
		if m.draft >= 0 && m.draft < len(m.messages) {
			m.messages[m.draft].Content = text
		}
		m.mu.Unlock()
		m.notifyMessages()
		return
	}

	m.mu.Lock()
	m.messages = append(m.messages, model.NewChatMessage(model.RoleSystem,
		fmt.Sprintf("Failed to get a response: %v", streamErr)))
	m.mu.Unlock()
	m.notifyMessages()
}

// finalizeTurn runs the idempotent end-of-stream steps: auto-rename,
// artifact extraction, archival, and the transition to Idle.
func (m *Manager) finalizeTurn(ctx context.Context) {
	m.mu.Lock()
	var final string
	if m.draft >= 0 && m.draft < len(m.messages) {
		final = m.messages[m.draft].Content
	}
	m.draft = -1
	m.state = StateIdle
	threadID := m.cctx.ThreadID
	agentID := m.cctx.AgentID
	resourceID := m.cctx.ResourceID
	messages := make([]model.ChatMessage, len(m.messages))
	copy(messages, m.messages)
	m.mu.Unlock()

	title := m.maybeRenameThread(ctx, threadID, agentID, resourceID, final)

	if a := artifact.Extract(final); a != nil {
		m.mu.Lock()
		m.current = a
		m.mu.Unlock()
		m.notifyArtifact()
	}

	if m.archive != nil && threadID != "" {
		// Best effort, the remote store is the source of truth
		_ = m.archive.Archive(threadID, agentID, title, messages)
	}
	m.notifyMessages()
}

// maybeRenameThread renames the thread to the first reply's leading
// characters, once: only placeholder titles are eligible, and the new
// title is never a placeholder, so a second completed stream cannot
// rename again. Returns the thread's title after the step.
func (m *Manager) maybeRenameThread(ctx context.Context, threadID, agentID, resourceID, reply string) string {
	if threadID == "" || m.memory == nil {
		return ""
	}

	m.mu.Lock()
	var title string
	for _, t := range m.threads {
		if t.ID == threadID {
			title = t.Title
			break
		}
	}
	if title == "" {
		// Thread not in the cache yet (fresh implicit create)
		title = m.tempTitle
	}
	eligible := m.isPlaceholderTitle(title)
	m.mu.Unlock()

	if !eligible {
		return title
	}

	newTitle := deriveTitle(reply)
	if newTitle == "" {
		newTitle = emptyReplyTitle
	}
	if err := m.memory.RenameThread(ctx, threadID, agentID, newTitle, resourceID); err != nil {
		return title
	}
	m.RefreshThreads(ctx)
	return newTitle
}

// isPlaceholderTitle reports whether a title is still "not yet
// user-meaningful". Caller holds the lock.
func (m *Manager) isPlaceholderTitle(title string) bool {
	switch title {
	case placeholderNewConversation,
		m.cctx.AgentName + "との会話",
		m.cctx.AgentName + "との新しい会話":
		return true
	}
	return m.tempTitle != "" && title == m.tempTitle
}

// deriveTitle returns the first titleRunes runes of text, ellipsized.
func deriveTitle(text string) string {
	head := util.TruncateRunesNoEllipsis(text, titleRunes)
	if head == text {
		return text
	}
	return head + "..."
}

// =============================================================================
// NOTIFICATION
// =============================================================================

func (m *Manager) notifyMessages() {
	m.mu.Lock()
	fn := m.onMessages
	var snapshot []model.ChatMessage
	if fn != nil {
		snapshot = make([]model.ChatMessage, len(m.messages))
		copy(snapshot, m.messages)
	}
	m.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}

func (m *Manager) notifyArtifact() {
	m.mu.Lock()
	fn := m.onArtifact
	a := m.current
	m.mu.Unlock()
	if fn != nil {
		fn(a)
	}
}

func (m *Manager) notifyThreads() {
	m.mu.Lock()
	fn := m.onThreads
	var snapshot []model.Thread
	if fn != nil {
		snapshot = make([]model.Thread, len(m.threads))
		copy(snapshot, m.threads)
	}
	m.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}
