// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package artifact

import (
	"testing"
)

func TestExtractFencedHTML(t *testing.T) {
	text := "Here you go:\n```html\n<div>x</div>\n```"

	a := Extract(text)
	if a == nil {
		t.Fatal("expected an artifact")
	}
	if a.Type != TypeHTML {
		t.Errorf("type = %q, want html", a.Type)
	}
	if a.Content != "<div>x</div>" {
		t.Errorf("content = %q", a.Content)
	}
}

func TestExtractMultipleHTMLFencesJoined(t *testing.T) {
	text := "```html\n<p>one</p>\n```\nand then\n```html\n<p>two</p>\n```"

	a := Extract(text)
	if a == nil || a.Type != TypeHTML {
		t.Fatalf("expected html artifact, got %+v", a)
	}
	if a.Content != "<p>one</p>\n\n<p>two</p>" {
		t.Errorf("joined content = %q", a.Content)
	}
}

func TestExtractUnfencedHTMLFallback(t *testing.T) {
	text := "<html>\n<body>\n<div>a</div>\n<p>b</p>\n<span>c</span>\n</body>\n</html>"

	a := Extract(text)
	if a == nil || a.Type != TypeHTML {
		t.Fatalf("expected html artifact, got %+v", a)
	}
	if a.Content != text {
		t.Errorf("unfenced html should keep the whole message")
	}
}

func TestFewHTMLTagsIsNotAnArtifact(t *testing.T) {
	if a := Extract("use <div> and <span> sparingly"); a != nil {
		t.Errorf("two tags should not classify as html, got %+v", a)
	}
}

func TestExtractWholeMessageMarkdown(t *testing.T) {
	text := "# Report\n\nIntro line.\n\n- item one\n- item two\n\nClosing."

	a := Extract(text)
	if a == nil || a.Type != TypeMarkdown {
		t.Fatalf("expected markdown artifact, got %+v", a)
	}
	if a.Content != text {
		t.Errorf("whole message should be kept verbatim")
	}
	if a.Title != "Report" {
		t.Errorf("title = %q, want first heading", a.Title)
	}
}

func TestShortHeadingMessageIsNotMarkdown(t *testing.T) {
	// A heading alone is not enough; the document gate needs >5 lines.
	if a := Extract("# hi\nok"); a != nil {
		t.Errorf("short message should not be a markdown document, got %+v", a)
	}
}

func TestWholeMarkdownWinsOverEmbeddedHTMLFence(t *testing.T) {
	text := "# Guide\n\nSome prose.\n\n```html\n<div>example</div>\n```\n\nMore prose."

	a := Extract(text)
	if a == nil || a.Type != TypeMarkdown {
		t.Fatalf("markdown document should win over embedded fence, got %+v", a)
	}
}

func TestExtractMarkdownFence(t *testing.T) {
	text := "Draft below.\n```markdown\n## Notes\n- a\n```"

	a := Extract(text)
	if a == nil || a.Type != TypeMarkdown {
		t.Fatalf("expected markdown artifact, got %+v", a)
	}
	if a.Content != "## Notes\n- a" {
		t.Errorf("content = %q", a.Content)
	}
	if a.Title != "Notes" {
		t.Errorf("title = %q", a.Title)
	}
}

func TestPlainFenceWithMarkdownMarkersIsMarkdown(t *testing.T) {
	text := "```\n- first\n- second\n```"

	a := Extract(text)
	if a == nil || a.Type != TypeMarkdown {
		t.Fatalf("markdown-ish plain fence should promote, got %+v", a)
	}
}

func TestExtractGenericCodeFence(t *testing.T) {
	text := "Try this:\n```go\nfmt.Println(\"hi\")\n```"

	a := Extract(text)
	if a == nil || a.Type != TypeCode {
		t.Fatalf("expected code artifact, got %+v", a)
	}
	if a.Language != "go" {
		t.Errorf("language = %q, want go", a.Language)
	}
	if a.Content != "fmt.Println(\"hi\")" {
		t.Errorf("content = %q", a.Content)
	}
}

func TestPlainProseHasNoArtifact(t *testing.T) {
	if a := Extract("just a sentence, nothing special"); a != nil {
		t.Errorf("prose should yield no artifact, got %+v", a)
	}
	if a := Extract("   \n\t"); a != nil {
		t.Errorf("blank text should yield no artifact, got %+v", a)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	texts := []string{
		"# Doc\na\nb\nc\nd\ne\nf",
		"```html\n<div>x</div>\n```",
		"```python\nprint(1)\n```",
	}
	for _, text := range texts {
		first := Extract(text)
		second := Extract(text)
		if first == nil || second == nil {
			t.Fatalf("expected artifacts for %q", text)
		}
		if first.Type != second.Type || first.Content != second.Content ||
			first.Title != second.Title || first.Language != second.Language {
			t.Errorf("extraction not stable for %q", text)
		}
	}
}

func TestStripStrayFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"leading markdown fence", "```markdown\n# Doc\nbody", "# Doc\nbody"},
		{"leading bare fence", "```\n# Doc\nbody", "# Doc\nbody"},
		{"dangling trailing fence", "# Doc\nbody\n```", "# Doc\nbody"},
		{"matched fences kept", "# Doc\n```go\ncode\n```", "# Doc\n```go\ncode\n```"},
		{"clean text untouched", "# Doc\nbody", "# Doc\nbody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripStrayFences(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
