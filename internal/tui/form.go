package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"taskflow-cli/internal/model"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formMode int

const (
	formAdd formMode = iota
	formEdit
)

// taskForm is the add/edit dialog. Length limits are checked on every keystroke; the
// empty-title check waits for the first submit.
type taskForm struct {
	mode  formMode
	id    int64
	title textinput.Model
	desc  textarea.Model
	focus int

	submitted bool
	err       string
	note      string

	editorPath   string
	editorBefore string
}

func newTaskForm(mode formMode, t model.Task, width int) (taskForm, tea.Cmd) {
	ti := textinput.New()
	ti.Placeholder = "What needs to be done?"
	ti.Prompt = ""
	ti.SetValue(t.Title)

	ta := textarea.New()
	ta.Placeholder = "Add some details (markdown)…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetValue(t.Description)
	ta.Blur()

	f := taskForm{mode: mode, id: t.ID, title: ti, desc: ta}
	f.resize(width)
	cmd := f.title.Focus()
	return f, cmd
}

func (f *taskForm) resize(width int) {
	w := modalBodyWidth(width)
	f.title.Width = w - 1
	f.desc.SetWidth(w)
	f.desc.SetHeight(5)
}

func (f taskForm) switchFocus() (taskForm, tea.Cmd) {
	f.focus = 1 - f.focus
	if f.focus == 0 {
		f.desc.Blur()
		cmd := f.title.Focus()
		return f, cmd
	}
	f.title.Blur()
	cmd := f.desc.Focus()
	return f, cmd
}

func (f taskForm) update(msg tea.Msg) (taskForm, tea.Cmd) {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.title, cmd = f.title.Update(msg)
	} else {
		f.desc, cmd = f.desc.Update(msg)
	}
	f.err = f.validate()
	if _, ok := msg.(tea.KeyMsg); ok {
		f.note = ""
	}
	return f, cmd
}

func (f taskForm) validate() string {
	title := strings.TrimSpace(f.title.Value())
	desc := strings.TrimSpace(f.desc.Value())
	if f.submitted && title == "" {
		if f.mode == formAdd {
			return "Title is required"
		}
		return "Title cannot be empty"
	}
	if utf8.RuneCountInString(title) > model.TitleMaxLength {
		return fmt.Sprintf("Title must be %d characters or less", model.TitleMaxLength)
	}
	if utf8.RuneCountInString(desc) > model.DescriptionMaxLength {
		return fmt.Sprintf("Description must be %d characters or less", model.DescriptionMaxLength)
	}
	return ""
}

// create returns the normalized create request, or the validation message.
func (f taskForm) create() (model.TaskCreate, string) {
	in, err := model.NormalizeCreate(f.title.Value(), f.desc.Value())
	if err != nil {
		return model.TaskCreate{}, err.Error()
	}
	return in, ""
}

func (f taskForm) edit() (model.TaskUpdate, string) {
	title, desc := f.title.Value(), f.desc.Value()
	up, err := model.NormalizeEdit(&title, &desc)
	if err != nil {
		return model.TaskUpdate{}, err.Error()
	}
	return up, ""
}

func (f taskForm) view(width int) string {
	heading := "New task"
	if f.mode == formEdit {
		heading = "Edit task"
	}
	count := func(s string, max int) string {
		return styleMuted().Render(fmt.Sprintf("%d/%d", utf8.RuneCountInString(strings.TrimSpace(s)), max))
	}

	lines := []string{
		"Title  " + count(f.title.Value(), model.TitleMaxLength),
		f.title.View(),
		"",
		"Description  " + count(f.desc.Value(), model.DescriptionMaxLength),
		f.desc.View(),
	}
	if f.err != "" {
		lines = append(lines, "", styleValidation().Render(f.err))
	}
	if f.note != "" {
		lines = append(lines, "", styleMuted().Render(f.note))
	}
	lines = append(lines, "", styleMuted().Width(modalBodyWidth(width)).Render("tab: next field   ctrl+e: $EDITOR   enter/ctrl+s: save   esc: cancel"))
	return renderModalBox(width, heading, strings.Join(lines, "\n"))
}
