// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/mastra-tui/internal/util"
)

// =============================================================================
// LOCAL STATE STORE
// =============================================================================

// resourceIDKey is where the installation-scoped resource ID lives.
const resourceIDKey = "resource_id"

// StateStore is a small persisted key-value store for client-local
// state that must survive restarts, most importantly the resource ID
// that scopes all remote conversation memory to this installation.
type StateStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// OpenStateStore loads (or initializes) the state file at path. An
// empty path uses state.json inside the config directory. A corrupt
// state file is treated as empty rather than fatal.
func OpenStateStore(path string) (*StateStore, error) {
	if path == "" {
		path = filepath.Join(Dir(), "state.json")
	}

	s := &StateStore{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

// Get returns the value for key, empty when absent.
func (s *StateStore) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Set stores a value and persists the file atomically.
func (s *StateStore) Set(key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	data, err := json.MarshalIndent(s.values, "", "  ")
	path := s.path
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	// The config directory holds private state, hence 0700
	return util.AtomicWriteFileWithDir(path, data, 0600, 0700)
}

// ResourceID returns the stable installation identifier, generating
// and persisting one on first use. Every thread and memory call for
// this installation uses the same value.
func (s *StateStore) ResourceID() (string, error) {
	if id := s.Get(resourceIDKey); id != "" {
		return id, nil
	}
	id := uuid.NewString()
	if err := s.Set(resourceIDKey, id); err != nil {
		return "", fmt.Errorf("failed to persist resource id: %w", err)
	}
	return id, nil
}
