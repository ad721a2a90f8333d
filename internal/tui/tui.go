// Package tui is the interactive terminal front end: a landing screen, token sign-in,
// the signed-in dashboard and the device-local task list.
package tui

import (
	"context"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/auth"
	"taskflow-cli/internal/config"
	"taskflow-cli/internal/localstore"
	"taskflow-cli/internal/logging"
	"taskflow-cli/internal/tasks"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

type Options struct {
	Config  *config.Config
	Session auth.FileSession
	Tokens  auth.TokenSource
	Logger  *log.Logger

	// Remote and Local open the task stores. Nil means the API client and the
	// sqlite local store from Config.
	Remote func(onAuthRequired func()) tasks.Backend
	Local  func(ctx context.Context) (tasks.Backend, func() error, error)

	// Clipboard copies text for the "y" key. Nil uses the platform copy command.
	Clipboard func(string) error
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Tokens == nil {
		o.Tokens = o.Session
	}
	if o.Remote == nil {
		o.Remote = func(onAuthRequired func()) tasks.Backend {
			return api.New(api.Options{
				BaseURL:        o.Config.APIURL,
				Tokens:         o.Tokens,
				Timeout:        o.Config.RequestTimeout,
				OnAuthRequired: onAuthRequired,
				Logger:         o.Logger,
			})
		}
	}
	if o.Clipboard == nil {
		o.Clipboard = copyToClipboard
	}
	if o.Local == nil {
		o.Local = func(ctx context.Context) (tasks.Backend, func() error, error) {
			s, err := localstore.Open(ctx, o.Config.LocalDB, localstore.Options{Logger: o.Logger})
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		}
	}
}

// Run blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference()

	m := newModel(ctx, opts)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if fm, ok := final.(appModel); ok {
		fm.closeTasks()
	} else {
		m.closeTasks()
	}
	return err
}
