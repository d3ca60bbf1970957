// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat view component for the TUI.

The package implements the full interactive surface: transcript
viewport, text input, thread sidebar, agent picker, artifact notice,
and status bar. It follows the Bubble Tea model/update/view pattern.

# Key Types

  - Model - the Bubble Tea model holding all view state
  - KeyMap - keyboard bindings with help text
  - SnapshotBuffer - coalesces streamed transcript snapshots at 30fps

# Architecture

The conversation manager owns all conversation state and publishes
changes through callbacks. Those callbacks run on the streaming
goroutine, so the model bridges them into the Bubble Tea loop with a
buffered channel and a coalescing snapshot buffer:

	manager callback -> SnapshotBuffer.Put + channel nudge
	Update loop      -> SnapshotBuffer.Flush at most once per frame

Sending a message is a blocking manager call wrapped in a tea.Cmd, so
the UI stays responsive while the reply streams in. Esc cancels the
in-flight request through its context.

# Usage

	theme := styles.NewTheme()
	m := chat.New(theme, manager, client, nil)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package chat
