package llm

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		gmhtml.WithHardWraps(),
		gmhtml.WithXHTML(),
	),
)

// outerFenceRegex matches an answer wrapped entirely in ``` or ```markdown fences
var outerFenceRegex = regexp.MustCompile("(?s)^```(?:markdown|md)?\\s*\\n(.*?)\\n?```\\s*$")

// RenderHTML converts an LLM markdown answer to HTML. Raw HTML in the answer
// is dropped by the renderer. On failure the text is returned escaped inside <p>.
func RenderHTML(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if m := outerFenceRegex.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "<p>" + html.EscapeString(text) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}
