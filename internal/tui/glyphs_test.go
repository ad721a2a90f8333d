package tui

import (
	"strings"
	"testing"

	"taskflow-cli/internal/model"

	"github.com/charmbracelet/x/ansi"
)

func TestGlyphs_FromEnv(t *testing.T) {
	t.Cleanup(func() { setGlyphs(glyphSetUnicode) })

	t.Setenv("TASKFLOW_TUI_GLYPHS", "")
	setGlyphs(glyphSetASCII)
	applyGlyphPreference()
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected unicode glyphs by default; got %v", got)
	}

	t.Setenv("TASKFLOW_TUI_GLYPHS", "ASCII")
	applyGlyphPreference()
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected ascii glyphs; got %v", got)
	}

	// Unknown values keep the current set.
	t.Setenv("TASKFLOW_TUI_GLYPHS", "bogus")
	applyGlyphPreference()
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected unknown to be ignored; got %v", got)
	}
}

func TestRenderRow_ASCIIGlyphs(t *testing.T) {
	t.Cleanup(func() { setGlyphs(glyphSetUnicode) })
	setGlyphs(glyphSetASCII)

	var m appModel
	row := ansi.Strip(m.renderRow(model.Task{ID: 1, Title: strings.Repeat("long title ", 10)}, true, 30))
	if !strings.Contains(row, "> [ ]") || !strings.Contains(row, "...") {
		t.Fatalf("expected ascii cursor and ellipsis, got %q", row)
	}
	if strings.ContainsAny(row, "›…") {
		t.Fatalf("unexpected unicode glyphs in %q", row)
	}
}
