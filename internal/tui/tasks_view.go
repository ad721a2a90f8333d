package tui

import (
	"context"
	"fmt"
	"strings"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/route"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// splitMinWidth is the terminal width from which the detail pane is shown beside the list.
const splitMinWidth = 100

func (m appModel) selected() (model.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Tasks) {
		return model.Task{}, false
	}
	return m.state.Tasks[m.cursor], true
}

// runOp runs fn against the current session in the background and reports back with
// opDoneMsg. The optimistic change shows up through the session's change signal.
func (m appModel) runOp(op string, fn func(ctx context.Context, ts *taskSession) bool) tea.Cmd {
	ts := m.ts
	if ts == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, ok: fn(ctx, ts)}
	}
}

func (m appModel) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalForm:
		return m.updateForm(msg)
	case modalConfirmDelete:
		return m.updateConfirm(msg)
	case modalDetail:
		switch msg.String() {
		case "esc", "enter", "q":
			m.modal = modalNone
		case "e":
			return m.openEdit()
		}
		return m, nil
	}

	if m.ts == nil {
		// The store failed to open; only navigation is possible.
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "esc":
			cmd := m.navigate(route.Landing)
			return m, cmd
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Tasks)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		if n := len(m.state.Tasks); n > 0 {
			m.cursor = n - 1
		}
	case " ", "x":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		ch := m.ts.mgr.ToggleComplete(t.ID)
		m.syncState()
		id := t.ID
		return m, func() tea.Msg { return toggleDoneMsg{id: id, ok: <-ch} }
	case "a", "n":
		var cmd tea.Cmd
		m.form, cmd = newTaskForm(formAdd, model.Task{}, m.width)
		m.modal = modalForm
		return m, cmd
	case "e":
		return m.openEdit()
	case "d", "delete":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.modal = modalConfirmDelete
		m.confirmID = t.ID
		m.confirmTitle = t.Title
		m.confirmFocus = confirmFocusCancel
	case "y":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.opts.Clipboard(t.Title); err != nil {
			m.status = "Could not copy: " + err.Error()
		} else {
			m.status = "Copied “" + t.Title + "”"
		}
	case "enter":
		if t, ok := m.selected(); ok {
			m.modal = modalDetail
			m.detailID = t.ID
		}
	case "r":
		m.state.IsLoading = true
		return m, tea.Batch(
			m.runOp("load", func(ctx context.Context, ts *taskSession) bool { return ts.mgr.Load(ctx) }),
			m.spinner.Tick,
		)
	case "esc":
		if m.state.Error != "" {
			m.ts.mgr.ClearError()
			m.syncState()
			return m, nil
		}
		if m.screen == screenLocal {
			cmd := m.navigate(route.Landing)
			return m, cmd
		}
	case "L":
		if m.screen != screenDashboard {
			return m, nil
		}
		if err := m.opts.Session.Clear(); err != nil {
			m.status = "Could not sign out: " + err.Error()
			return m, nil
		}
		cmd := m.navigate(route.Landing)
		return m, cmd
	}
	return m, nil
}

func (m appModel) openEdit() (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if m.modal == modalDetail {
		t, ok = m.taskByID(m.detailID)
	}
	if !ok {
		return m, nil
	}
	var cmd tea.Cmd
	m.form, cmd = newTaskForm(formEdit, t, m.width)
	m.modal = modalForm
	return m, cmd
}

func (m appModel) taskByID(id int64) (model.Task, bool) {
	for _, t := range m.state.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		return m, nil
	case "tab", "shift+tab":
		var cmd tea.Cmd
		m.form, cmd = m.form.switchFocus()
		return m, cmd
	case "ctrl+s":
		return m.submitForm()
	case "ctrl+e":
		cmd, err := m.form.openEditor()
		if err != nil {
			m.form.note = "Could not start the editor: " + err.Error()
			return m, nil
		}
		return m, cmd
	case "enter":
		if m.form.focus == 0 {
			return m.submitForm()
		}
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m appModel) submitForm() (tea.Model, tea.Cmd) {
	m.form.submitted = true
	if m.form.mode == formAdd {
		in, msg := m.form.create()
		if msg != "" {
			m.form.err = msg
			return m, nil
		}
		m.modal = modalNone
		return m, m.runOp("create", func(ctx context.Context, ts *taskSession) bool {
			return ts.mgr.Create(ctx, in) != nil
		})
	}

	up, msg := m.form.edit()
	if msg != "" {
		m.form.err = msg
		return m, nil
	}
	id := m.form.id
	m.modal = modalNone
	return m, m.runOp("update", func(ctx context.Context, ts *taskSession) bool {
		return ts.mgr.Update(ctx, id, up) != nil
	})
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		m.modal = modalNone
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.confirmFocus == confirmFocusCancel {
			m.confirmFocus = confirmFocusConfirm
		} else {
			m.confirmFocus = confirmFocusCancel
		}
	case "y":
		return m.confirmDelete()
	case "enter":
		if m.confirmFocus == confirmFocusConfirm {
			return m.confirmDelete()
		}
		m.modal = modalNone
	}
	return m, nil
}

func (m appModel) confirmDelete() (tea.Model, tea.Cmd) {
	id := m.confirmID
	m.modal = modalNone
	return m, m.runOp("delete", func(ctx context.Context, ts *taskSession) bool {
		return ts.mgr.Delete(ctx, id)
	})
}

func (m appModel) viewTasks() string {
	w := m.width
	if w < 40 {
		w = 40
	}

	heading := "My tasks"
	if m.screen == screenLocal {
		heading = "Local tasks"
	}
	header := styleBadge().Render("TaskFlow") + "  " + styleTitle().Render(heading)
	if m.state.IsLoading {
		header += "  " + m.spinner.View() + styleMuted().Render(" loading" + glyphEllipsis())
	}

	sep := " " + glyphSep() + " "
	sub := fmt.Sprintf("%d tasks%s%d completed%s%d pending", len(m.state.Tasks), sep, m.state.Completed(), sep, m.state.Pending())
	if m.screen == screenLocal {
		sub += "   " + "Stored on this device only."
	}
	lines := []string{header, styleMuted().Render(sub), ""}

	if m.state.Error != "" {
		lines = append(lines, styleBanner().Width(w).Render("! "+m.state.Error+"   (esc: dismiss)"), "")
	}
	if m.status != "" {
		lines = append(lines, styleValidation().Render(m.status), "")
	}

	listW := w
	showPane := w >= splitMinWidth && len(m.state.Tasks) > 0
	if showPane {
		listW = w * 3 / 5
	}
	rows := m.height - len(lines) - 3
	if rows < 3 {
		rows = 3
	}
	list := m.viewList(listW, rows)
	if showPane {
		pane := lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(colorBorder).
			PaddingLeft(2).
			Width(w - listW - 1).
			Render(m.viewPane(w - listW - 4))
		list = lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(listW).Render(list), pane)
	}
	lines = append(lines, list, "")

	help := "space: toggle  a: add  e: edit  d: delete  enter: details  y: copy  r: reload  q: quit"
	if m.screen == screenDashboard {
		help += "  L: sign out"
	} else {
		help += "  esc: back"
	}
	lines = append(lines, styleMuted().Render(ansi.Truncate(help, w, glyphEllipsis())))
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func (m appModel) viewList(width, rows int) string {
	if len(m.state.Tasks) == 0 {
		if m.state.IsLoading {
			return ""
		}
		empty := "No tasks yet. Press a to add your first task."
		return styleMuted().Render(empty)
	}

	offset := 0
	if m.cursor >= rows {
		offset = m.cursor - rows + 1
	}
	end := offset + rows
	if end > len(m.state.Tasks) {
		end = len(m.state.Tasks)
	}

	out := make([]string, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, m.renderRow(m.state.Tasks[i], i == m.cursor, width))
	}
	return strings.Join(out, "\n")
}

func (m appModel) renderRow(t model.Task, selected bool, width int) string {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	syncing := ""
	if m.ts != nil && m.ts.mgr.TogglePending(t.ID) {
		syncing = " " + glyphSyncing()
	}
	avail := width - 6 - ansi.StringWidth(syncing)
	if avail < 5 {
		avail = 5
	}
	title := ansi.Truncate(t.Title, avail, glyphEllipsis())

	if selected {
		return styleSelected().Width(width).Render(glyphCursor() + " " + box + " " + title + syncing)
	}
	if t.Completed {
		title = styleDone().Render(title)
	}
	return "  " + box + " " + title + styleMuted().Render(syncing)
}

func (m appModel) viewPane(width int) string {
	t, ok := m.selected()
	if !ok {
		return ""
	}
	return taskDetail(t, width)
}

func (m appModel) viewDetail() string {
	t, ok := m.taskByID(m.detailID)
	if !ok {
		return renderModalBox(m.width, "Task", styleMuted().Render("This task no longer exists."))
	}
	body := taskDetail(t, modalBodyWidth(m.width))
	help := styleMuted().Render("e: edit   esc: close")
	return renderModalBox(m.width, ansi.Truncate(t.Title, modalBodyWidth(m.width), glyphEllipsis()), body+"\n\n"+help)
}

func taskDetail(t model.Task, width int) string {
	status := "Pending"
	if t.Completed {
		status = "Completed"
	}
	meta := status + " " + glyphSep() + " created " + t.CreatedAt.Local().Format("Jan 2, 2006")
	desc := renderMarkdown(t.Description, width)
	if desc == "" {
		desc = styleMuted().Render("No description.")
	}
	return styleTitle().Render(ansi.Truncate(t.Title, width, glyphEllipsis())) + "\n" + styleMuted().Render(meta) + "\n\n" + desc
}
