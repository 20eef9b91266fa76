package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer turns the markdown-ish text of a bot message into terminal output.
type Renderer func(string) (string, error)

// NewRenderer returns a glamour backed renderer. When styled is false (pipes,
// dumb terminals) text passes through untouched.
func NewRenderer(styled bool) Renderer {
	if !styled {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		out, err := r.Render(markdown)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(out, "\n"), nil
	}
}
