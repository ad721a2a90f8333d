package tui

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type externalEditorDoneMsg struct {
	err error
}

func externalEditorName() string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return "vi"
}

// openEditor writes the description to a temp file and suspends the program while
// $VISUAL or $EDITOR edits it.
func (f *taskForm) openEditor() (tea.Cmd, error) {
	args := splitShellWords(externalEditorName())
	if len(args) == 0 {
		args = []string{"vi"}
	}

	tmp, err := os.CreateTemp("", "taskflow-*.md")
	if err != nil {
		return nil, err
	}
	path := tmp.Name()
	if _, err := tmp.WriteString(f.desc.Value()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	f.editorPath = path
	f.editorBefore = f.desc.Value()

	cmd := exec.Command(args[0], append(args[1:], path)...)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return externalEditorDoneMsg{err: err}
	}), nil
}

// applyEditorResult loads the edited file back into the description and removes it.
func (f *taskForm) applyEditorResult(msg externalEditorDoneMsg) {
	path, before := f.editorPath, f.editorBefore
	f.editorPath, f.editorBefore = "", ""
	if strings.TrimSpace(path) == "" {
		return
	}
	defer func() { _ = os.Remove(path) }()

	if msg.err != nil {
		f.note = "Editor failed: " + msg.err.Error()
		return
	}
	b, err := os.ReadFile(path)
	if err != nil {
		f.note = "Could not read the edited file: " + err.Error()
		return
	}

	after := strings.TrimRight(string(b), "\n")
	f.desc.SetValue(after)
	f.err = f.validate()
	if strings.TrimSpace(after) == strings.TrimSpace(before) {
		f.note = fmt.Sprintf("No changes from %s", externalEditorName())
		return
	}
	f.note = fmt.Sprintf("Updated from %s (ctrl+s to save)", externalEditorName())
}
