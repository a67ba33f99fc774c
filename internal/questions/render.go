package questions

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Answers are model output; raw HTML in them is dropped by goldmark's default renderer.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderMarkdown converts an answer to HTML.
func RenderMarkdown(answer string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(answer), &buf); err != nil {
		return "", fmt.Errorf("render answer: %w", err)
	}
	return buf.String(), nil
}
