// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps a local SQLite archive of finished
// conversations. The remote memory store is the source of truth; the
// archive exists so past conversations stay searchable locally, and
// so memory-less sessions leave a trace at all.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/mastra-tui/internal/model"
)

// ErrNotFound indicates the requested conversation is not archived.
var ErrNotFound = errors.New("conversation not found in archive")

// ArchivedConversation is one archive entry's header row.
type ArchivedConversation struct {
	ThreadID     string
	AgentID      string
	Title        string
	MessageCount int
	UpdatedAt    time.Time
}

// Store is the archive database handle. Safe for concurrent use; the
// sql package serializes access.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	thread_id  TEXT PRIMARY KEY,
	agent_id   TEXT NOT NULL,
	title      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id  TEXT NOT NULL REFERENCES conversations(thread_id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);
`

// Open opens (or creates) the archive at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		// The driver creates the file but not its directory
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Archive stores a conversation snapshot, replacing any previous
// snapshot for the same thread.
func (s *Store) Archive(threadID, agentID, title string, messages []model.ChatMessage) error {
	if threadID == "" {
		return errors.New("thread id is empty")
	}
	if title == "" {
		title = "(untitled)"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO conversations (thread_id, agent_id, title, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET agent_id = excluded.agent_id,
			title = excluded.title, updated_at = excluded.updated_at`,
		threadID, agentID, title, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	for i, msg := range messages {
		created := msg.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		_, err := tx.Exec(`INSERT INTO messages (thread_id, position, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			threadID, i, string(msg.Role), msg.Content, created.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

// List returns archive headers, most recently updated first.
func (s *Store) List() ([]ArchivedConversation, error) {
	rows, err := s.db.Query(`SELECT c.thread_id, c.agent_id, c.title, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.thread_id = c.thread_id)
		FROM conversations c ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	defer rows.Close()

	var out []ArchivedConversation
	for rows.Next() {
		var c ArchivedConversation
		var updated int64
		if err := rows.Scan(&c.ThreadID, &c.AgentID, &c.Title, &updated, &c.MessageCount); err != nil {
			return nil, err
		}
		c.UpdatedAt = time.Unix(updated, 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Load returns the archived messages of one thread in order.
func (s *Store) Load(threadID string) ([]model.ChatMessage, error) {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM conversations WHERE thread_id = ?`, threadID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	rows, err := s.db.Query(`SELECT role, content, created_at FROM messages
		WHERE thread_id = ? ORDER BY position`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		var role, content string
		var created int64
		if err := rows.Scan(&role, &content, &created); err != nil {
			return nil, err
		}
		out = append(out, model.ChatMessage{
			Role:      model.Role(role),
			Content:   content,
			CreatedAt: time.Unix(created, 0),
		})
	}
	return out, rows.Err()
}

// Search returns headers of conversations whose title or message text
// contains the query, most recently updated first.
func (s *Store) Search(query string) ([]ArchivedConversation, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(`SELECT DISTINCT c.thread_id, c.agent_id, c.title, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.thread_id = c.thread_id)
		FROM conversations c
		LEFT JOIN messages m ON m.thread_id = c.thread_id
		WHERE c.title LIKE ? OR m.content LIKE ?
		ORDER BY c.updated_at DESC`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search archive: %w", err)
	}
	defer rows.Close()

	var out []ArchivedConversation
	for rows.Next() {
		var c ArchivedConversation
		var updated int64
		if err := rows.Scan(&c.ThreadID, &c.AgentID, &c.Title, &updated, &c.MessageCount); err != nil {
			return nil, err
		}
		c.UpdatedAt = time.Unix(updated, 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a conversation and its messages from the archive.
func (s *Store) Delete(threadID string) error {
	res, err := s.db.Exec(`DELETE FROM conversations WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
