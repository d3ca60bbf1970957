// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the main Bubble Tea model: state, construction,
// and the update loop. Rendering lives in view.go and slash command
// handling in commands.go.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/mastra-tui/internal/artifact"
	"github.com/jeranaias/mastra-tui/internal/conversation"
	"github.com/jeranaias/mastra-tui/internal/export"
	"github.com/jeranaias/mastra-tui/internal/mastra"
	"github.com/jeranaias/mastra-tui/internal/model"
	"github.com/jeranaias/mastra-tui/internal/ui/styles"
)

// =============================================================================
// MODEL DEFINITION
// =============================================================================

// updateChannelSize bounds the callback-to-UI message channel. The
// snapshot buffer absorbs delta bursts, so the channel only carries
// nudges and stays shallow.
const updateChannelSize = 64

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	theme  *styles.Theme
	keyMap KeyMap

	manager *conversation.Manager
	client  *mastra.Client

	// Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Streaming plumbing. Manager callbacks run on the stream
	// goroutine and publish through these.
	updates  chan tea.Msg
	buffer   *SnapshotBuffer
	renderer *glamour.TermRenderer

	// Conversation state mirrored from the manager
	messages []model.ChatMessage
	threads  []model.Thread
	art      *artifact.Artifact

	// Agent selection
	agents       []model.Agent
	agentIdx     int
	currentAgent model.Agent
	defaultAgent string
	pickingAgent bool

	// View state
	threadIdx   int
	showThreads bool
	showHelp    bool
	streaming   bool
	errText     string
	statusNote  string

	exportOpts *export.Options

	cancelStream context.CancelFunc

	width  int
	height int
	ready  bool
}

// New creates a new chat model wired to a conversation manager.
func New(theme *styles.Theme, manager *conversation.Manager, client *mastra.Client, exportOpts *export.Options) *Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII-compatible animation at the streaming frame rate
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}

	if exportOpts == nil {
		exportOpts = export.DefaultOptions()
	}

	m := &Model{
		theme:       theme,
		keyMap:      DefaultKeyMap(),
		manager:     manager,
		client:      client,
		viewport:    vp,
		input:       ti,
		spinner:     sp,
		updates:     make(chan tea.Msg, updateChannelSize),
		buffer:      NewSnapshotBuffer(),
		showThreads: true,
		exportOpts:  exportOpts,
	}

	// Callbacks fire on the streaming goroutine. Snapshots go through
	// the coalescing buffer; everything else through the channel.
	manager.SetOnMessagesChanged(func(msgs []model.ChatMessage) {
		m.buffer.Put(msgs)
		m.publish(MessagesChangedMsg{})
	})
	manager.SetOnThreadsChanged(func(threads []model.Thread) {
		m.publish(ThreadsChangedMsg{Threads: threads})
	})
	manager.SetOnArtifactChanged(func(a *artifact.Artifact) {
		m.publish(ArtifactChangedMsg{Artifact: a})
	})

	return m
}

// SetDefaultAgent sets the agent ID selected at startup when present
// on the server.
func (m *Model) SetDefaultAgent(id string) {
	m.defaultAgent = id
}

// publish sends a message to the update loop without blocking the
// stream goroutine. Dropped nudges are safe: a later tick or channel
// message drains the same state.
func (m *Model) publish(msg tea.Msg) {
	select {
	case m.updates <- msg:
	default:
	}
}

// listenCmd waits for the next callback-originated message.
func (m *Model) listenCmd() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model and kicks off agent discovery.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.listenCmd(),
		m.loadAgentsCmd(),
	)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case MessagesChangedMsg:
		cmds = append(cmds, m.listenCmd())
		if snapshot, ok := m.buffer.Flush(); ok {
			m.applyMessages(snapshot)
		} else {
			// Below threshold; pick it up on the next frame.
			cmds = append(cmds, streamTickCmd())
		}

	case StreamTickMsg:
		if snapshot, ok := m.buffer.Flush(); ok {
			m.applyMessages(snapshot)
		}
		if m.streaming || m.buffer.Pending() > 0 {
			cmds = append(cmds, streamTickCmd())
		}

	case ThreadsChangedMsg:
		m.threads = msg.Threads
		m.clampThreadIdx()
		cmds = append(cmds, m.listenCmd())

	case ArtifactChangedMsg:
		m.art = msg.Artifact
		cmds = append(cmds, m.listenCmd())

	case SendDoneMsg:
		m.streaming = false
		m.cancelStream = nil
		if snapshot, ok := m.buffer.ForceFlush(); ok {
			m.applyMessages(snapshot)
		}
		if msg.Err != nil && !strings.Contains(msg.Err.Error(), context.Canceled.Error()) {
			m.errText = msg.Err.Error()
		}

	case AgentsLoadedMsg:
		if msg.Err != nil {
			m.errText = "agent discovery failed: " + msg.Err.Error()
			break
		}
		m.agents = msg.Agents
		if len(m.agents) > 0 && m.currentAgent.ID == "" {
			// No agent yet; pick the configured default, else the first
			pick := m.agents[0]
			for _, a := range m.agents {
				if a.ID == m.defaultAgent {
					pick = a
					break
				}
			}
			return m, m.selectAgentCmd(pick)
		}
		if m.pickingAgent && len(m.agents) == 0 {
			m.pickingAgent = false
			m.errText = "no agents available"
		}

	case AgentSelectedMsg:
		m.pickingAgent = false
		if msg.Err != nil {
			m.errText = "agent select failed: " + msg.Err.Error()
			break
		}
		m.currentAgent = msg.Agent
		m.errText = ""
		m.statusNote = ""
		m.art = nil
		m.applyMessages(m.manager.Messages())

	case ThreadSelectedMsg:
		if msg.Err != nil {
			m.errText = "conversation load failed: " + msg.Err.Error()
			break
		}
		m.art = nil
		m.applyMessages(m.manager.Messages())

	case ThreadDeletedMsg:
		if msg.Err != nil {
			m.errText = "delete failed: " + msg.Err.Error()
			break
		}
		m.applyMessages(m.manager.Messages())

	case ExportDoneMsg:
		if msg.Err != nil {
			m.errText = "export failed: " + msg.Err.Error()
		} else {
			m.statusNote = "saved " + msg.Path
		}

	case ErrorMsg:
		m.errText = msg.Err.Error()
	}

	// Forward remaining events to the viewport for scrolling
	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The agent picker captures all keys while open
	if m.pickingAgent {
		return m.handlePickerKey(msg)
	}

	k := m.keyMap
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.Cancel):
		if m.streaming && m.cancelStream != nil {
			m.cancelStream()
		}
		return m, nil

	case key.Matches(msg, k.Up), key.Matches(msg, k.Down),
		key.Matches(msg, k.PageUp), key.Matches(msg, k.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, k.ToggleThreads):
		m.showThreads = !m.showThreads
		m.resize(m.width, m.height)
		return m, nil

	case key.Matches(msg, k.NewThread):
		m.manager.NewThread()
		m.art = nil
		m.applyMessages(m.manager.Messages())
		return m, nil

	case key.Matches(msg, k.DeleteThread):
		if id := m.selectedThreadID(); id != "" {
			return m, m.deleteThreadCmd(id)
		}
		return m, nil

	case key.Matches(msg, k.NextThread):
		return m, m.moveThreadSelection(1)

	case key.Matches(msg, k.PrevThread):
		return m, m.moveThreadSelection(-1)

	case key.Matches(msg, k.Agents):
		m.pickingAgent = true
		m.agentIdx = 0
		return m, m.loadAgentsCmd()

	case key.Matches(msg, k.SaveArtifact):
		if m.art != nil {
			return m, m.saveArtifactCmd(m.art)
		}
		m.errText = "no artifact to save"
		return m, nil

	case key.Matches(msg, k.Submit):
		return m.submitInput()
	}

	// Everything else goes to the text input
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.agentIdx > 0 {
			m.agentIdx--
		}
	case "down", "j":
		if m.agentIdx < len(m.agents)-1 {
			m.agentIdx++
		}
	case "enter":
		if m.agentIdx < len(m.agents) {
			return m, m.selectAgentCmd(m.agents[m.agentIdx])
		}
	case "esc":
		m.pickingAgent = false
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) submitInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.SetValue("")
		return m.handleSlashCommand(text)
	}
	if m.streaming {
		m.errText = "still streaming, press Esc to cancel"
		return m, nil
	}

	m.input.SetValue("")
	m.errText = ""
	m.statusNote = ""
	m.streaming = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelStream = cancel

	// The spinner tick chain stops while idle; restart it for this turn
	return m, tea.Batch(m.sendCmd(ctx, text), streamTickCmd(), m.spinner.Tick)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) sendCmd(ctx context.Context, text string) tea.Cmd {
	return func() tea.Msg {
		err := m.manager.SendMessage(ctx, text)
		return SendDoneMsg{Err: err}
	}
}

func (m *Model) loadAgentsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		agents, err := m.client.ListAgents(ctx)
		return AgentsLoadedMsg{Agents: agents, Err: err}
	}
}

func (m *Model) selectAgentCmd(agent model.Agent) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := m.manager.SelectAgent(ctx, agent)
		return AgentSelectedMsg{Agent: agent, Err: err}
	}
}

func (m *Model) selectThreadCmd(threadID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := m.manager.SelectThread(ctx, threadID)
		return ThreadSelectedMsg{ThreadID: threadID, Err: err}
	}
}

func (m *Model) deleteThreadCmd(threadID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := m.manager.DeleteThread(ctx, threadID)
		return ThreadDeletedMsg{ThreadID: threadID, Err: err}
	}
}

func (m *Model) saveArtifactCmd(a *artifact.Artifact) tea.Cmd {
	return func() tea.Msg {
		path, err := export.SaveArtifact(a, m.exportOpts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

func (m *Model) exportCmd(exporter export.Exporter) tea.Cmd {
	conv := &export.Conversation{
		Title:     m.currentThreadTitle(),
		AgentName: m.currentAgent.DisplayName(),
		Messages:  m.messages,
		CreatedAt: time.Now(),
	}
	return func() tea.Msg {
		path, err := export.ExportToFile(conv, exporter, m.exportOpts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// applyMessages updates the transcript and re-renders the viewport.
func (m *Model) applyMessages(msgs []model.ChatMessage) {
	m.messages = msgs
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if atBottom || m.streaming {
		m.viewport.GotoBottom()
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	// Layout: header + viewport + input area + status bar
	const reservedHeight = 6
	vpHeight := height - reservedHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = vpHeight
	m.input.Width = width - 6

	// Word wrap tracks the transcript width
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.viewport.Width-2),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.ready = true
	m.applyMessages(m.messages)
}

// transcriptWidth returns the viewport width after the sidebar.
func (m *Model) transcriptWidth() int {
	w := m.width
	if m.showThreads && m.theme.GetLayoutMode() != styles.LayoutNarrow {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) selectedThreadID() string {
	if m.threadIdx >= 0 && m.threadIdx < len(m.threads) {
		return m.threads[m.threadIdx].ID
	}
	return ""
}

func (m *Model) clampThreadIdx() {
	if m.threadIdx >= len(m.threads) {
		m.threadIdx = len(m.threads) - 1
	}
	if m.threadIdx < 0 {
		m.threadIdx = 0
	}
}

func (m *Model) moveThreadSelection(delta int) tea.Cmd {
	if len(m.threads) == 0 || m.streaming {
		return nil
	}
	m.threadIdx += delta
	m.clampThreadIdx()
	return m.selectThreadCmd(m.threads[m.threadIdx].ID)
}

func (m *Model) currentThreadTitle() string {
	id := m.manager.CurrentThreadID()
	for _, th := range m.threads {
		if th.ID == id {
			return th.Title
		}
	}
	return "conversation"
}
