package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestThemePreference(t *testing.T) {
	cases := []struct {
		name, theme, darkbg, colorfgbg string
		want                           string
	}{
		{name: "none"},
		{name: "explicit light", theme: "Light", darkbg: "true", want: "light"},
		{name: "explicit dark", theme: "dark", want: "dark"},
		{name: "darkbg false", darkbg: "false", want: "light"},
		{name: "darkbg garbage falls through", darkbg: "maybe", colorfgbg: "15;0", want: "dark"},
		{name: "colorfgbg light", colorfgbg: "0;15", want: "light"},
		{name: "colorfgbg three segments", colorfgbg: "15;default;0", want: "dark"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TASKFLOW_TUI_THEME", tc.theme)
			t.Setenv("TASKFLOW_TUI_DARKBG", tc.darkbg)
			t.Setenv("COLORFGBG", tc.colorfgbg)
			if got := themePreference(); got != tc.want {
				t.Fatalf("themePreference() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestModalBodyWidth_Clamps(t *testing.T) {
	if got := modalBodyWidth(20); got != 30 {
		t.Fatalf("narrow: got %d", got)
	}
	if got := modalBodyWidth(60); got != 50 {
		t.Fatalf("medium: got %d", got)
	}
	if got := modalBodyWidth(300); got != 72 {
		t.Fatalf("wide: got %d", got)
	}
}

func TestRenderConfirmModal_ShowsButtons(t *testing.T) {
	out := ansi.Strip(renderConfirmModal(80, "Delete task", "Delete it?", "Delete", "Cancel", confirmFocusCancel))
	for _, want := range []string{"Delete task", "Delete it?", "Delete", "Cancel", "esc: cancel"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in modal:\n%s", want, out)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	if got := renderMarkdown("   \n", 40); got != "" {
		t.Fatalf("blank description should render empty, got %q", got)
	}
	out := ansi.Strip(renderMarkdown("# Groceries\n\n- milk\n- eggs", 40))
	for _, want := range []string{"Groceries", "milk", "eggs"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in rendered markdown:\n%s", want, out)
		}
	}
}
