// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:4111", cfg.Server.BaseURL)
	assert.True(t, cfg.History.Enabled)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.BaseURL, cfg.Server.BaseURL)
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "version = \"1\"\n\n[server]\nbase_url = \"http://example.test:9000\"\ndefault_agent = \"weather\"\n\n[ui]\ntheme = \"light\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test:9000", cfg.Server.BaseURL)
	assert.Equal(t, "weather", cfg.Server.DefaultAgent)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("MASTRA_BASE_URL", "http://override:1234")
	t.Setenv("MASTRA_DEFAULT_AGENT", "envagent")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://override:1234", cfg.Server.BaseURL)
	assert.Equal(t, "envagent", cfg.Server.DefaultAgent)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BaseURL = "not a url"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.UI.Theme = "neon"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Server.DefaultAgent = "saved-agent"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-agent", loaded.Server.DefaultAgent)
}
