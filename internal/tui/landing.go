package tui

import (
	"strings"

	"taskflow-cli/internal/apperr"
	"taskflow-cli/internal/auth"
	"taskflow-cli/internal/route"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var sessionExpiredNote = apperr.MsgSessionExpiry

func (m appModel) updateLanding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.landingCursor > 0 {
			m.landingCursor--
		}
	case "down", "j":
		if m.landingCursor < len(landingChoices)-1 {
			m.landingCursor++
		}
	case "s":
		cmd := m.navigate(route.Dashboard)
		return m, cmd
	case "l":
		cmd := m.navigate(route.Todo)
		return m, cmd
	case "enter":
		choice := landingChoices[m.landingCursor]
		if choice.path == "" {
			return m, tea.Quit
		}
		cmd := m.navigate(choice.path)
		return m, cmd
	}
	return m, nil
}

func (m appModel) viewLanding() string {
	var b strings.Builder
	b.WriteString(styleBadge().Render("TaskFlow"))
	b.WriteString("\n\n")
	b.WriteString(styleTitle().Render("Organize your work, one task at a time."))
	b.WriteString("\n")
	b.WriteString(styleMuted().Render("Sign in to keep tasks in your account, or try it out locally."))
	b.WriteString("\n\n")
	for i, c := range landingChoices {
		line := "  " + c.label
		if i == m.landingCursor {
			line = styleSelected().Render(glyphCursor() + " " + c.label)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(styleMuted().Render("↑/↓: move   enter: select   s: sign in   l: local   q: quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m appModel) updateSignIn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		cmd := m.navigate(route.Landing)
		return m, cmd
	case "tab", "shift+tab", "up", "down":
		m.signInFocus = 1 - m.signInFocus
		if m.signInFocus == 0 {
			m.emailInput.Blur()
			cmd := m.tokenInput.Focus()
			return m, cmd
		}
		m.tokenInput.Blur()
		cmd := m.emailInput.Focus()
		return m, cmd
	case "enter":
		token := strings.TrimSpace(m.tokenInput.Value())
		if token == "" {
			m.signInErr = "Token is required"
			return m, nil
		}
		s := auth.Session{Token: token, Email: strings.TrimSpace(m.emailInput.Value())}
		if err := m.opts.Session.Save(s); err != nil {
			m.signInErr = "Could not save the session: " + err.Error()
			return m, nil
		}
		m.tokenInput.SetValue("")
		m.signInNote = ""
		cmd := m.navigate(route.Dashboard)
		return m, cmd
	}
	return m.updateSignInInputs(msg)
}

func (m appModel) updateSignInInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.signInFocus == 0 {
		m.tokenInput, cmd = m.tokenInput.Update(msg)
	} else {
		m.emailInput, cmd = m.emailInput.Update(msg)
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		m.signInErr = ""
	}
	return m, cmd
}

func (m appModel) viewSignIn() string {
	var b strings.Builder
	b.WriteString(styleBadge().Render("TaskFlow") + "  " + styleTitle().Render("Sign in"))
	b.WriteString("\n\n")
	if m.signInNote != "" {
		b.WriteString(styleBanner().Render(m.signInNote))
		b.WriteString("\n\n")
	}
	b.WriteString(styleMuted().Render("Sign in on the web, copy your session token and paste it here."))
	b.WriteString("\n\n")
	b.WriteString("Token\n" + m.tokenInput.View() + "\n\n")
	b.WriteString("Email\n" + m.emailInput.View() + "\n")
	if m.signInErr != "" {
		b.WriteString("\n" + styleValidation().Render(m.signInErr) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(styleMuted().Render("tab: next field   enter: sign in   esc: back"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m appModel) updateSignup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		cmd := m.navigate(route.Landing)
		return m, cmd
	case "enter", "s":
		cmd := m.navigate(route.Login)
		return m, cmd
	}
	return m, nil
}

func (m appModel) signupURL() string {
	if u := strings.TrimSpace(m.opts.Config.SignupURL); u != "" {
		return u
	}
	return m.opts.Config.APIURL + route.Signup
}

func (m appModel) viewSignup() string {
	lines := []string{
		styleBadge().Render("TaskFlow") + "  " + styleTitle().Render("Create an account"),
		"",
		"Accounts are created in the browser:",
		"",
		"  " + lipgloss.NewStyle().Foreground(colorAccent).Underline(true).Render(m.signupURL()),
		"",
		styleMuted().Render("Then come back and sign in with your session token."),
		"",
		styleMuted().Render("enter: sign in   esc: back   q: quit"),
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}
