package tui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	mdRendererMu sync.Mutex
	// Keyed by style and wrap width. WithAutoStyle is avoided: it can block on
	// terminal background queries.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// renderMarkdown renders a task description for the detail pane. Errors fall back to
// the raw text.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	styleName := markdownStyle()
	key := styleName + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	mdRendererMu.Unlock()

	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStyles(markdownStyleConfig(styleName)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func markdownStyle() string {
	if p := themePreference(); p != "" {
		return p
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// markdownStyleConfig starts from glamour's light/dark presets with the document
// margin removed (the pane already pads) and links in the accent color.
func markdownStyleConfig(styleName string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	if styleName == "light" {
		cfg = styles.LightStyleConfig
	}
	zero := uint(0)
	cfg.Document.Margin = &zero

	link := mdColor(colorAccent, styleName)
	underline := true
	cfg.Link.Color = link
	cfg.Link.Underline = &underline
	cfg.LinkText.Color = link
	cfg.LinkText.Underline = &underline
	return cfg
}

func mdColor(c lipgloss.TerminalColor, styleName string) *string {
	var s string
	switch v := c.(type) {
	case lipgloss.AdaptiveColor:
		s = v.Dark
		if styleName == "light" {
			s = v.Light
		}
	case lipgloss.Color:
		s = string(v)
	default:
		return nil
	}
	return &s
}
