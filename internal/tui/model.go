package tui

import (
	"context"
	"strings"

	"taskflow-cli/internal/route"
	"taskflow-cli/internal/tasks"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type screen int

const (
	screenLanding screen = iota
	screenSignIn
	screenSignup
	screenDashboard
	screenLocal
)

type modalKind int

const (
	modalNone modalKind = iota
	modalForm
	modalConfirmDelete
	modalDetail
)

type confirmModalFocus int

const (
	confirmFocusCancel confirmModalFocus = iota
	confirmFocusConfirm
)

type opDoneMsg struct {
	op string
	ok bool
}

type toggleDoneMsg struct {
	id int64
	ok bool
}

var landingChoices = []struct {
	label string
	path  string
}{
	{"Sign in", route.Dashboard},
	{"Use without an account (tasks stay on this device)", route.Todo},
	{"Create an account", route.Signup},
	{"Quit", ""},
}

type appModel struct {
	ctx  context.Context
	opts Options

	width  int
	height int

	screen        screen
	landingCursor int
	initCmd       tea.Cmd

	tokenInput  textinput.Model
	emailInput  textinput.Model
	signInFocus int
	signInNote  string
	signInErr   string

	ts      *taskSession
	state   tasks.State
	cursor  int
	spinner spinner.Model
	status  string

	modal        modalKind
	form         taskForm
	confirmID    int64
	confirmTitle string
	confirmFocus confirmModalFocus
	detailID     int64
}

func newModel(ctx context.Context, opts Options) appModel {
	opts.defaults()
	if ctx == nil {
		ctx = context.Background()
	}

	token := textinput.New()
	token.Placeholder = "paste the token from the web app"
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'
	token.CharLimit = 4096

	email := textinput.New()
	email.Placeholder = "you@example.com (optional)"
	email.CharLimit = 254

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	m := appModel{
		ctx:        ctx,
		opts:       opts,
		width:      80,
		height:     24,
		tokenInput: token,
		emailInput: email,
		spinner:    sp,
	}
	start := route.Landing
	if m.signedIn() {
		start = route.Dashboard
	}
	m.initCmd = m.navigate(start)
	return m
}

func (m appModel) Init() tea.Cmd { return m.initCmd }

func (m appModel) signedIn() bool {
	tok, err := m.opts.Tokens.Token(m.ctx)
	return err == nil && strings.TrimSpace(tok) != ""
}

// navigate moves to path after applying the route guard.
func (m *appModel) navigate(path string) tea.Cmd {
	path = route.Resolve(path, m.signedIn())
	m.modal = modalNone
	m.status = ""
	switch {
	case path == route.Dashboard:
		return m.openTasks(screenDashboard)
	case path == route.Todo:
		return m.openTasks(screenLocal)
	case path == route.Login:
		return m.showSignIn()
	case path == route.Signup:
		m.closeTasks()
		m.screen = screenSignup
		return nil
	default:
		m.closeTasks()
		m.screen = screenLanding
		return nil
	}
}

// showSignIn opens the sign-in screen without consulting the route guard.
func (m *appModel) showSignIn() tea.Cmd {
	m.closeTasks()
	m.screen = screenSignIn
	m.signInErr = ""
	m.signInFocus = 0
	m.emailInput.Blur()
	return m.tokenInput.Focus()
}

func (m *appModel) openTasks(s screen) tea.Cmd {
	m.closeTasks()
	m.screen = s
	m.cursor = 0

	ts := newTaskSession()
	var backend tasks.Backend
	closeFn := func() error { return nil }
	if s == screenDashboard {
		backend = m.opts.Remote(func() { signal(ts.authRequired) })
	} else {
		b, c, err := m.opts.Local(m.ctx)
		if err != nil {
			m.opts.Logger.Error("open local tasks", "err", err)
			m.state = tasks.State{Error: "Could not open the local task list: " + err.Error()}
			return nil
		}
		backend, closeFn = b, c
	}
	ts.attach(tasks.NewManager(backend, tasks.Options{
		ToggleDebounce: m.opts.Config.ToggleDebounce,
		RequestTimeout: m.opts.Config.RequestTimeout,
		Logger:         m.opts.Logger,
	}), closeFn)
	m.ts = ts
	m.state = tasks.State{IsLoading: true}

	ctx := m.ctx
	return tea.Batch(
		func() tea.Msg {
			ts.mgr.Load(ctx)
			return opDoneMsg{op: "load", ok: true}
		},
		waitForChange(ts),
		m.spinner.Tick,
	)
}

func (m *appModel) closeTasks() {
	if m.ts == nil {
		return
	}
	if err := m.ts.close(); err != nil {
		m.opts.Logger.Warn("close task store", "err", err)
	}
	m.ts = nil
	m.state = tasks.State{}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.form.resize(m.width)
		return m, nil

	case stateChangedMsg:
		if msg.s != m.ts {
			return m, nil
		}
		m.syncState()
		return m, waitForChange(m.ts)

	case authRequiredMsg:
		if msg.s != m.ts {
			return m, nil
		}
		// The stored token was rejected; keeping it would bounce straight back here.
		if err := m.opts.Session.Clear(); err != nil {
			m.opts.Logger.Warn("clear rejected session", "err", err)
		}
		m.modal = modalNone
		cmd := m.showSignIn()
		m.signInNote = sessionExpiredNote
		return m, cmd

	case opDoneMsg:
		if m.ts != nil {
			m.syncState()
			if msg.op == "create" && msg.ok && len(m.state.Tasks) > 0 {
				m.cursor = len(m.state.Tasks) - 1
			}
		}
		return m, nil

	case externalEditorDoneMsg:
		if m.modal == modalForm {
			m.form.applyEditorResult(msg)
		}
		return m, nil

	case toggleDoneMsg:
		if m.ts != nil {
			m.syncState()
		}
		return m, nil

	case spinner.TickMsg:
		if m.ts == nil || !m.state.IsLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.screen {
		case screenLanding:
			return m.updateLanding(msg)
		case screenSignIn:
			return m.updateSignIn(msg)
		case screenSignup:
			return m.updateSignup(msg)
		default:
			return m.updateTasks(msg)
		}
	}

	if m.screen == screenSignIn {
		return m.updateSignInInputs(msg)
	}
	if m.modal == modalForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.update(msg)
		return m, cmd
	}
	return m, nil
}

// syncState copies the manager's snapshot and keeps the cursor on a real row.
func (m *appModel) syncState() {
	if m.ts == nil {
		return
	}
	m.state = m.ts.mgr.Snapshot()
	if m.cursor >= len(m.state.Tasks) {
		m.cursor = len(m.state.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m appModel) View() string {
	var body string
	switch m.screen {
	case screenLanding:
		body = m.viewLanding()
	case screenSignIn:
		body = m.viewSignIn()
	case screenSignup:
		body = m.viewSignup()
	default:
		body = m.viewTasks()
	}

	switch m.modal {
	case modalForm:
		return m.overlay(m.form.view(m.width))
	case modalConfirmDelete:
		body := "Delete “" + m.confirmTitle + "”? This cannot be undone."
		return m.overlay(renderConfirmModal(m.width, "Delete task", body, "Delete", "Cancel", m.confirmFocus))
	case modalDetail:
		return m.overlay(m.viewDetail())
	}
	return body
}

func (m appModel) overlay(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
