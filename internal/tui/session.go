package tui

import (
	"taskflow-cli/internal/tasks"

	tea "github.com/charmbracelet/bubbletea"
)

// taskSession is one open task store behind a Manager, plus the signals that wake
// the program when the manager's state changes.
type taskSession struct {
	mgr     *tasks.Manager
	closeFn func() error

	changed      chan struct{}
	authRequired chan struct{}
	done         chan struct{}
	unsubscribe  func()
}

func newTaskSession() *taskSession {
	return &taskSession{
		changed:      make(chan struct{}, 1),
		authRequired: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// signal coalesces: one pending wake-up is enough because views read a fresh snapshot.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *taskSession) attach(mgr *tasks.Manager, closeFn func() error) {
	s.mgr = mgr
	s.closeFn = closeFn
	s.unsubscribe = mgr.Subscribe(func(tasks.State) { signal(s.changed) })
}

func (s *taskSession) close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.mgr != nil {
		s.mgr.Flush()
		s.mgr.Close()
	}
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

type stateChangedMsg struct{ s *taskSession }

type authRequiredMsg struct{ s *taskSession }

// waitForChange delivers the next state change or auth failure of s. It returns nil
// once s is closed.
func waitForChange(s *taskSession) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.changed:
			return stateChangedMsg{s: s}
		case <-s.authRequired:
			return authRequiredMsg{s: s}
		case <-s.done:
			return nil
		}
	}
}
