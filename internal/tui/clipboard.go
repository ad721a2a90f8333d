package tui

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

type clipboardCmd struct {
	name string
	args []string
}

// clipboardCommands lists the copy commands to try on goos, in order.
func clipboardCommands(goos string) []clipboardCmd {
	switch goos {
	case "darwin":
		return []clipboardCmd{{name: "pbcopy"}}
	case "windows":
		return []clipboardCmd{
			{name: "cmd", args: []string{"/c", "clip"}},
			{name: "powershell", args: []string{"-NoProfile", "-Command", "Set-Clipboard"}},
		}
	default:
		// Wayland first, then X11.
		return []clipboardCmd{
			{name: "wl-copy"},
			{name: "xclip", args: []string{"-selection", "clipboard"}},
			{name: "xsel", args: []string{"--clipboard", "--input"}},
		}
	}
}

func copyToClipboard(s string) error {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var last error
	for _, c := range clipboardCommands(runtime.GOOS) {
		if _, err := exec.LookPath(c.name); err != nil {
			last = err
			continue
		}
		cmd := exec.Command(c.name, c.args...)
		cmd.Stdin = strings.NewReader(s)
		if err := cmd.Run(); err != nil {
			last = errors.New(c.name + ": " + err.Error())
			continue
		}
		return nil
	}
	if last == nil {
		last = errors.New("no clipboard command available")
	}
	return last
}
