// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/mastra-tui/internal/artifact"
	"github.com/jeranaias/mastra-tui/internal/model"
)

func sampleConversation() *Conversation {
	return &Conversation{
		Title:     "test chat",
		AgentName: "Helper",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Messages: []model.ChatMessage{
			{Role: model.RoleUser, Content: "show me go code"},
			{Role: model.RoleAssistant, Content: "Sure:\n```go\nfmt.Println(\"hi\")\n```"},
		},
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	text := string(out)
	for _, want := range []string{"# test chat", "## User", "## Assistant", "```go"} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestHTMLExportHighlightsCode(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, "<div class=\"code-block\">") {
		t.Error("expected a code block container")
	}
	if !strings.Contains(text, "user-message") || !strings.Contains(text, "assistant-message") {
		t.Error("expected role-classed message divs")
	}
	// Raw fence markers must not leak into the document
	if strings.Contains(text, "```") {
		t.Error("fence markers leaked into HTML output")
	}
}

func TestJSONExportRoundTrips(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc["title"] != "test chat" {
		t.Errorf("title = %v", doc["title"])
	}
}

func TestExportRejectsEmptyConversation(t *testing.T) {
	empty := &Conversation{Title: "x"}
	if _, err := NewMarkdownExporter(nil).Export(empty); err == nil {
		t.Error("markdown should reject empty conversation")
	}
	if _, err := NewHTMLExporter(nil).Export(empty); err == nil {
		t.Error("html should reject empty conversation")
	}
}

func TestExportToFileWritesFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportToFile(sampleConversation(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}
	if !strings.HasSuffix(path, ".md") {
		t.Errorf("path = %q, want .md suffix", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestSaveArtifactPicksExtension(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	a := &artifact.Artifact{Type: artifact.TypeHTML, Title: "page", Content: "<div>x</div>"}
	path, err := SaveArtifact(a, opts)
	if err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	if !strings.HasSuffix(path, ".html") {
		t.Errorf("path = %q, want .html suffix", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "<div>x</div>" {
		t.Errorf("content = %q err=%v", data, err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"simple", "simple"},
		{"with space", "with_space"},
		{"a/b:c", "a-b-c"},
		{"", "conversation"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
