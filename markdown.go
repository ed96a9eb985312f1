package gitdict

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Raw HTML in notes is dropped; goldmark only passes it through with
// html.WithUnsafe.
var notesMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderMarkdown converts a note body to HTML for the note history
func RenderMarkdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := notesMarkdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
