// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jeranaias/mastra-tui/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestArchiveAndLoad(t *testing.T) {
	s := openTestStore(t)

	msgs := []model.ChatMessage{
		{Role: model.RoleUser, Content: "question"},
		{Role: model.RoleAssistant, Content: "answer"},
	}
	if err := s.Archive("t1", "a1", "first chat", msgs); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	loaded, err := s.Load("t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d messages, want 2", len(loaded))
	}
	if loaded[0].Content != "question" || loaded[1].Role != model.RoleAssistant {
		t.Errorf("messages = %+v", loaded)
	}
}

func TestArchiveReplacesSnapshot(t *testing.T) {
	s := openTestStore(t)

	if err := s.Archive("t1", "a1", "v1", []model.ChatMessage{
		{Role: model.RoleUser, Content: "old"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Archive("t1", "a1", "v2", []model.ChatMessage{
		{Role: model.RoleUser, Content: "new"},
		{Role: model.RoleAssistant, Content: "reply"},
	}); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.Load("t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 || loaded[0].Content != "new" {
		t.Errorf("snapshot not replaced: %+v", loaded)
	}

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "v2" || list[0].MessageCount != 2 {
		t.Errorf("list = %+v", list)
	}
}

func TestSearchMatchesTitleAndContent(t *testing.T) {
	s := openTestStore(t)

	s.Archive("t1", "a1", "grocery plan", []model.ChatMessage{
		{Role: model.RoleUser, Content: "buy milk"},
	})
	s.Archive("t2", "a1", "other", []model.ChatMessage{
		{Role: model.RoleAssistant, Content: "the milk delivery schedule"},
	})
	s.Archive("t3", "a1", "unrelated", []model.ChatMessage{
		{Role: model.RoleUser, Content: "nothing here"},
	})

	hits, err := s.Search("milk")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("hits = %+v, want t1 and t2", hits)
	}
}

func TestLoadAndDeleteMissing(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Load("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load missing err = %v", err)
	}
	if err := s.Delete("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing err = %v", err)
	}

	s.Archive("t1", "a1", "title", nil)
	if err := s.Delete("t1"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, err := s.Load("t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted thread should be gone, err = %v", err)
	}
}
