// mastra-tui - A terminal chat client for Mastra agent servers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mastra-tui/internal/config"
	"github.com/jeranaias/mastra-tui/internal/conversation"
	"github.com/jeranaias/mastra-tui/internal/export"
	"github.com/jeranaias/mastra-tui/internal/history"
	"github.com/jeranaias/mastra-tui/internal/mastra"
	"github.com/jeranaias/mastra-tui/internal/ui/chat"
	"github.com/jeranaias/mastra-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file (default ~/.mastra-tui/config.toml)")
		serverURL   = flag.String("server", "", "Mastra server base URL (overrides config)")
		agentID     = flag.String("agent", "", "agent ID to select at startup (overrides config)")
		debugLog    = flag.String("debug-log", "", "write debug logs to this file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	// A TUI owns stdout, so logs are file-only and off by default
	if *debugLog != "" {
		f, err := tea.LogToFile(*debugLog, "mastra")
		if err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	}

	if *showVersion {
		fmt.Printf("mastra-tui %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.BaseURL = *serverURL
	}
	if *agentID != "" {
		cfg.Server.DefaultAgent = *agentID
	}

	if err := run(cfg, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "mastra-tui: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string) error {
	// Stable per-install resource ID for memory scoping
	state, err := config.OpenStateStore(filepath.Join(config.Dir(), "state.json"))
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	resourceID, err := state.ResourceID()
	if err != nil {
		return fmt.Errorf("resource id: %w", err)
	}

	client := mastra.NewClient(cfg.Server.BaseURL)

	// Local archive is optional; the chat works without it
	var archive conversation.Archiver
	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path = filepath.Join(config.Dir(), "history.db")
		}
		store, err := history.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		} else {
			defer store.Close()
			archive = store
		}
	}

	manager := conversation.NewManager(client, client, archive, resourceID)

	theme := styles.NewTheme()
	exportOpts := export.DefaultOptions()
	exportOpts.Theme = cfg.UI.Theme
	exportOpts.IncludeTimestamps = cfg.UI.ShowTimestamps

	m := chat.New(theme, manager, client, exportOpts)
	m.SetDefaultAgent(cfg.Server.DefaultAgent)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Reload config edits while running. Only the export settings are
	// hot-swappable; server changes need a restart.
	if configPath == "" {
		configPath = config.Path()
	}
	watcher, err := config.NewWatcher(configPath, 100*time.Millisecond, func(next *config.Config) {
		exportOpts.Theme = next.UI.Theme
		exportOpts.IncludeTimestamps = next.UI.ShowTimestamps
	})
	if err == nil {
		if err := watcher.Watch(); err == nil {
			defer watcher.Close()
		}
	}

	_, err = p.Run()
	return err
}
