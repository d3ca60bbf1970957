// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package artifact detects and extracts renderable sub-documents
// (HTML, Markdown, fenced code) embedded in assistant messages.
package artifact

import (
	"regexp"
	"strings"
	"time"
)

// =============================================================================
// ARTIFACT TYPES
// =============================================================================

// Type classifies an extracted sub-document.
type Type string

const (
	TypeHTML     Type = "html"
	TypeMarkdown Type = "markdown"
	TypeCode     Type = "code"
)

// Artifact is a renderable sub-document extracted from a message,
// distinct from the conversational text. One live artifact exists per
// conversation; a new extraction replaces the previous one.
type Artifact struct {
	Type     Type      `json:"type"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Language string    `json:"language,omitempty"`
	Created  time.Time `json:"created"`
}

// =============================================================================
// DETECTION
// =============================================================================

var (
	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)

	// fenceRe captures a fenced block: language tag and inner content.
	fenceRe = regexp.MustCompile("```(\\w*)[ \t]*\\n((?s).*?)```")

	// htmlElementRe matches one element opening per line.
	htmlElementRe = regexp.MustCompile(`(?i)<[a-z][a-z0-9]*(\s[^>]*)?>`)

	// htmlGateRe requires at least one common structural tag before the
	// line-count fallback applies, keeping prose like "x < y" out.
	htmlGateRe = regexp.MustCompile(`(?i)<(html|head|body|div|span|p|a|ul|ol|li|table|tr|td|th|h[1-6]|form|input|button|img|section|article|nav|header|footer|script|style)\b`)
)

// Extract inspects message text and returns the artifact it contains,
// or nil. Pure function of the text, safe to call repeatedly; calling
// it on its own output yields the same decision.
//
// Detection order, first match wins:
//  1. whole message is a Markdown document
//  2. fenced HTML block, or a heavily HTML-tagged unfenced message
//  3. fenced Markdown block, or a markdown-ish plain fence
//  4. first generic fenced code block
func Extract(text string) *Artifact {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if a := extractWholeMarkdown(text); a != nil {
		return a
	}
	if a := extractHTML(text); a != nil {
		return a
	}
	if a := extractMarkdownFences(text); a != nil {
		return a
	}
	if a := extractCodeFence(text); a != nil {
		return a
	}
	return nil
}

// extractWholeMarkdown treats the entire message as a Markdown document
// when it carries at least one heading and more than 5 lines.
func extractWholeMarkdown(text string) *Artifact {
	if !headingRe.MatchString(text) {
		return nil
	}
	if strings.Count(text, "\n")+1 <= 5 {
		return nil
	}
	content := StripStrayFences(text)
	return &Artifact{
		Type:    TypeMarkdown,
		Title:   deriveTitle(content, "Markdown Document"),
		Content: content,
		Created: time.Now(),
	}
}

// extractHTML returns fenced html blocks joined by a blank line, or the
// whole message when it contains at least 5 element openings even
// without fencing.
func extractHTML(text string) *Artifact {
	var blocks []string
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if strings.EqualFold(m[1], "html") {
			blocks = append(blocks, strings.TrimRight(m[2], "\n"))
		}
	}
	if len(blocks) > 0 {
		content := strings.Join(blocks, "\n\n")
		return &Artifact{
			Type:    TypeHTML,
			Title:   deriveHTMLTitle(content),
			Content: content,
			Created: time.Now(),
		}
	}

	if htmlGateRe.MatchString(text) && len(htmlElementRe.FindAllString(text, 6)) >= 5 {
		return &Artifact{
			Type:    TypeHTML,
			Title:   deriveHTMLTitle(text),
			Content: text,
			Created: time.Now(),
		}
	}
	return nil
}

// extractMarkdownFences returns fenced markdown blocks joined by a
// blank line. As a fallback a plain fence whose content reads like
// Markdown is promoted to a markdown artifact.
func extractMarkdownFences(text string) *Artifact {
	var blocks []string
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if strings.EqualFold(m[1], "markdown") || strings.EqualFold(m[1], "md") {
			blocks = append(blocks, strings.TrimRight(m[2], "\n"))
		}
	}
	if len(blocks) > 0 {
		content := strings.Join(blocks, "\n\n")
		return &Artifact{
			Type:    TypeMarkdown,
			Title:   deriveTitle(content, "Markdown Document"),
			Content: content,
			Created: time.Now(),
		}
	}

	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if m[1] == "" && looksLikeMarkdown(m[2]) {
			content := strings.TrimRight(m[2], "\n")
			return &Artifact{
				Type:    TypeMarkdown,
				Title:   deriveTitle(content, "Markdown Document"),
				Content: content,
				Created: time.Now(),
			}
		}
	}
	return nil
}

// extractCodeFence returns the first fenced block of any language.
func extractCodeFence(text string) *Artifact {
	m := fenceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return &Artifact{
		Type:     TypeCode,
		Title:    "Code Snippet",
		Content:  strings.TrimRight(m[2], "\n"),
		Language: m[1],
		Created:  time.Now(),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// looksLikeMarkdown checks for Markdown-ish line starts in a block.
func looksLikeMarkdown(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch trimmed[0] {
		case '#', '-', '*', '[':
			return true
		}
	}
	return false
}

// StripStrayFences removes formatting debris the model sometimes wraps
// a document in: a leading "```markdown" (or bare "```") line and an
// unterminated trailing "```". Interior content is untouched.
func StripStrayFences(text string) string {
	out := text

	trimmed := strings.TrimLeft(out, " \t\n")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		switch strings.TrimSpace(trimmed[:idx]) {
		case "```markdown", "```md", "```":
			out = trimmed[idx+1:]
		}
	}

	tail := strings.TrimRight(out, " \t\n")
	if strings.HasSuffix(tail, "```") {
		body := tail[:len(tail)-3]
		// Only strip when the trailing fence is unmatched
		if strings.Count(body, "```")%2 == 0 {
			out = strings.TrimRight(body, " \t\n")
		}
	}
	return out
}

// deriveTitle pulls the first heading text out of a Markdown document,
// falling back to a type default.
func deriveTitle(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			title := strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
			if title != "" {
				return title
			}
		}
	}
	return fallback
}

var htmlTitleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// deriveHTMLTitle reads the document <title>, falling back to a default.
func deriveHTMLTitle(content string) string {
	if m := htmlTitleRe.FindStringSubmatch(content); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}
	return "HTML Document"
}
