package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette. Everything uses AdaptiveColor so light and dark terminals both stay
// readable; faint styling is only applied on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted       lipgloss.TerminalColor = ac("240", "243")
	colorSelectedBg  lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg  lipgloss.TerminalColor = ac("235", "255")
	colorSurfaceBg   lipgloss.TerminalColor = ac("255", "235")
	colorSurfaceFg   lipgloss.TerminalColor = ac("235", "252")
	colorControlBg   lipgloss.TerminalColor = ac("252", "235")
	colorAccent      lipgloss.TerminalColor = ac("27", "62")
	colorAccentFg    lipgloss.TerminalColor = ac("255", "235")
	colorDone        lipgloss.TerminalColor = ac("28", "71")
	colorErrorBg     lipgloss.TerminalColor = ac("196", "160")
	colorErrorFg     lipgloss.TerminalColor = ac("255", "255")
	colorBorder      lipgloss.TerminalColor = ac("250", "243")
	colorValidation  lipgloss.TerminalColor = ac("160", "203")
	colorModalHeader lipgloss.TerminalColor = colorControlBg
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleTitle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg)
}

func styleSelected() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
}

func styleDone() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorDone).Strikethrough(true)
}

func styleBanner() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorErrorFg).Background(colorErrorBg).Padding(0, 1)
}

func styleValidation() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorValidation)
}

func styleBadge() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorAccentFg).Background(colorAccent).Padding(0, 1).Bold(true)
}

// applyColorProfilePreference honors NO_COLOR and otherwise trusts TERM/COLORTERM when
// termenv under-reports (CLICOLOR is ignored on purpose inside the TUI).
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") && profile != termenv.TrueColor {
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}

// themePreference returns "light", "dark" or "" (unknown). Order:
// TASKFLOW_TUI_THEME, then TASKFLOW_TUI_DARKBG, then the COLORFGBG heuristic.
func themePreference() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TASKFLOW_TUI_THEME"))) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	if v := strings.TrimSpace(os.Getenv("TASKFLOW_TUI_DARKBG")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			if b {
				return "dark"
			}
			return "light"
		}
	}
	// COLORFGBG is "fg;bg" (sometimes more segments); xterm colors 0-6 are dark.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			if bg < 7 {
				return "dark"
			}
			return "light"
		}
	}
	return ""
}

func applyThemePreference() {
	switch themePreference() {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	}
}
