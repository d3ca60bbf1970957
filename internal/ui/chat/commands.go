// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file handles slash commands entered in the input field.
package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mastra-tui/internal/export"
)

// handleSlashCommand dispatches a "/command [args]" input line.
func (m *Model) handleSlashCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/new":
		m.manager.NewThread()
		m.art = nil
		m.applyMessages(m.manager.Messages())
		return m, nil

	case "/delete":
		if id := m.manager.CurrentThreadID(); id != "" {
			return m, m.deleteThreadCmd(id)
		}
		m.errText = "no conversation selected"
		return m, nil

	case "/agents":
		m.pickingAgent = true
		m.agentIdx = 0
		return m, m.loadAgentsCmd()

	case "/export":
		return m, m.handleExport(args)

	case "/save":
		if m.art == nil {
			m.errText = "no artifact to save"
			return m, nil
		}
		return m, m.saveArtifactCmd(m.art)

	case "/help":
		m.showHelp = !m.showHelp
		return m, nil

	case "/quit", "/q":
		return m, tea.Quit

	default:
		m.errText = fmt.Sprintf("unknown command %q", cmd)
		return m, nil
	}
}

// handleExport picks an exporter from the argument. Defaults to markdown.
func (m *Model) handleExport(args []string) tea.Cmd {
	if len(m.messages) == 0 {
		m.errText = "nothing to export"
		return nil
	}

	format := "md"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}

	var exporter export.Exporter
	switch format {
	case "md", "markdown":
		exporter = export.NewMarkdownExporter(m.exportOpts)
	case "html":
		exporter = export.NewHTMLExporter(m.exportOpts)
	case "json":
		exporter = export.NewJSONExporter(m.exportOpts)
	default:
		m.errText = fmt.Sprintf("unknown export format %q (md, html, json)", format)
		return nil
	}

	return m.exportCmd(exporter)
}
