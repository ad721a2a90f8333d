package tui

import (
	"strings"
	"unicode"
)

// splitShellWords splits an editor command such as `code --wait` into argv. Single and
// double quotes group words; a backslash escapes the next rune outside single quotes.
func splitShellWords(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		escaped bool
		started bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			started = true
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
			started = true
		case quote == 0 && unicode.IsSpace(r):
			if started || cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started || cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
