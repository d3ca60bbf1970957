// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and local state for
// mastra-tui.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - StateStore: Persisted key-value store for client-local state,
//     including the installation resource ID
//   - Watcher: Debounced hot reload of the config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (MASTRA_*)
//   - ~/.mastra-tui/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Obtain the stable resource ID:
//
//	store, _ := config.OpenStateStore("")
//	resourceID, _ := store.ResourceID()
package config
