package tui

import (
	"os"
	"strings"
	"sync"
)

// Some terminal fonts render arrows and ellipses poorly; TASKFLOW_TUI_GLYPHS=ascii
// swaps them for plain characters.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

func applyGlyphPreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TASKFLOW_TUI_GLYPHS"))) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	defer glyphsMu.RUnlock()
	return currentGlyphs
}

func pick(unicode, ascii string) string {
	if glyphs() == glyphSetASCII {
		return ascii
	}
	return unicode
}

func glyphCursor() string   { return pick("›", ">") }
func glyphSyncing() string  { return pick("↻", "~") }
func glyphSep() string      { return pick("·", "-") }
func glyphEllipsis() string { return pick("…", "...") }
