// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file renders the chat layout: header, thread sidebar,
// transcript viewport, artifact notice, input area, and status bar.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mastra-tui/internal/model"
	"github.com/jeranaias/mastra-tui/internal/ui/styles"
	"github.com/jeranaias/mastra-tui/internal/util"
)

// sidebarWidth is the fixed column width of the thread sidebar.
const sidebarWidth = 28

// View renders the full chat interface.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.pickingAgent {
		return m.renderAgentPicker()
	}

	sections := []string{m.renderHeader()}

	main := m.viewport.View()
	if m.showThreads && m.theme.GetLayoutMode() != styles.LayoutNarrow {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	}
	sections = append(sections, main)

	if m.art != nil {
		sections = append(sections, m.renderArtifactNotice())
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	}
	sections = append(sections, m.renderInput(), m.renderStatusBar())

	return m.theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// =============================================================================
// SECTIONS
// =============================================================================

func (m *Model) renderHeader() string {
	title := "mastra"
	if m.currentAgent.ID != "" {
		title = m.currentAgent.DisplayName()
	}
	left := m.theme.HeaderTitle.Render(title)

	var right string
	if m.manager.MemoryWarning() {
		right = m.theme.StatusWarn.Render(styles.StatusIndicators.Warning + " memory unavailable")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString(m.theme.ThreadTitle.Render("Conversations"))
	sb.WriteString("\n\n")

	if len(m.threads) == 0 {
		sb.WriteString(m.theme.ThreadMeta.Render("(none yet)"))
	}

	currentID := m.manager.CurrentThreadID()
	for i, th := range m.threads {
		title := util.TruncateWidth(th.Title, sidebarWidth-6)
		marker := "  "
		if th.ID == currentID {
			marker = styles.StatusIndicators.Active + " "
		}
		line := marker + title
		if i == m.threadIdx {
			sb.WriteString(m.theme.ThreadItemSelected.Render(line))
		} else {
			sb.WriteString(m.theme.ThreadItem.Render(line))
		}
		sb.WriteString("\n")
	}

	return m.theme.ThreadList.
		Width(sidebarWidth).
		Height(m.viewport.Height).
		Render(sb.String())
}

func (m *Model) renderArtifactNotice() string {
	badge := m.theme.ArtifactBadge.Render(strings.ToUpper(string(m.art.Type)))
	title := m.art.Title
	if title == "" {
		title = "untitled"
	}
	hint := m.theme.ShortcutDesc.Render("C-s to save")
	line := fmt.Sprintf("%s %s  %s", badge, m.theme.ArtifactHeader.Render(title), hint)
	return m.theme.ArtifactPane.Width(m.width - 2).Render(line)
}

func (m *Model) renderInput() string {
	prompt := m.input.View()
	if m.streaming {
		prompt = m.theme.Spinner.Render(m.spinner.View()) + " " +
			m.theme.ThinkingText.Render("waiting for response...")
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(prompt)
}

func (m *Model) renderStatusBar() string {
	if m.errText != "" {
		return m.theme.StatusBar.Width(m.width).Render(styles.RenderError(m.errText))
	}
	if m.statusNote != "" {
		return m.theme.StatusBar.Width(m.width).Render(styles.RenderInfo(m.statusNote))
	}

	var parts []string
	for _, b := range m.keyMap.ShortHelp() {
		h := b.Help()
		parts = append(parts,
			m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m *Model) renderHelp() string {
	var sb strings.Builder
	for _, group := range m.keyMap.FullHelp() {
		var parts []string
		for _, b := range group {
			h := b.Help()
			parts = append(parts,
				m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
		}
		sb.WriteString(strings.Join(parts, "  "))
		sb.WriteString("\n")
	}
	sb.WriteString(m.theme.ShortcutDesc.Render("slash commands: /new /delete /agents /export [md|html|json] /save /quit"))
	return m.theme.Container.Render(sb.String())
}

func (m *Model) renderAgentPicker() string {
	var sb strings.Builder
	sb.WriteString(m.theme.HeaderTitle.Render("Select an agent"))
	sb.WriteString("\n\n")

	if len(m.agents) == 0 {
		sb.WriteString(m.theme.ThinkingText.Render("discovering agents..."))
	}
	for i, a := range m.agents {
		line := a.DisplayName()
		if a.Description != "" {
			line += "  " + m.theme.ThreadMeta.Render(util.TruncateRunes(a.Description, 40))
		}
		if i == m.agentIdx {
			sb.WriteString(m.theme.PickerItemSelected.Render(line))
		} else {
			sb.WriteString(m.theme.PickerItem.Render(line))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.theme.ShortcutDesc.Render("up/down to move, Enter to select, Esc to close"))

	box := m.theme.PickerBox.Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// renderMessages renders the transcript for the viewport.
func (m *Model) renderMessages() string {
	if len(m.messages) == 0 {
		welcome := m.theme.ThinkingText.Render("Send a message to start a conversation.")
		return "\n  " + welcome
	}

	width := m.transcriptWidth() - 6
	if width < 16 {
		width = 16
	}

	var sb strings.Builder
	for _, msg := range m.messages {
		sb.WriteString(m.renderMessage(msg, width))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderMessage(msg model.ChatMessage, width int) string {
	label := m.theme.RoleLabel.Render(roleLabel(msg.Role))
	if !msg.CreatedAt.IsZero() {
		label += " " + m.theme.Timestamp.Render(msg.CreatedAt.Format("15:04"))
	}

	switch msg.Role {
	case model.RoleUser:
		body := m.theme.UserBubble.MaxWidth(width).Render(msg.Content)
		return label + "\n" + body
	case model.RoleSystem:
		body := m.theme.SystemBubble.MaxWidth(width).Render(msg.Content)
		return label + "\n" + body
	default:
		// Assistant replies are markdown; render with glamour when
		// available. Streaming partials render fine because glamour
		// tolerates unterminated markup.
		body := m.renderMarkdown(msg.Content)
		return label + "\n" + m.theme.AssistantBubble.MaxWidth(width).Render(body)
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil || content == "" {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func roleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "You"
	case model.RoleAssistant:
		return "Assistant"
	case model.RoleSystem:
		return "System"
	}
	return string(role)
}
