// Package tasks holds the session's task collection and mediates every mutation
// through an optimistic protocol: local state changes first, the backend confirms
// later, and failures restore the snapshot taken before the change.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"taskflow-cli/internal/apperr"
	"taskflow-cli/internal/debounce"
	"taskflow-cli/internal/logging"
	"taskflow-cli/internal/model"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

const DefaultToggleDebounce = 300 * time.Millisecond

// Fallback messages for failures outside the apperr taxonomy.
const (
	msgLoadFailed   = "Failed to load tasks. Please try again."
	msgCreateFailed = "Failed to create task. Please try again."
	msgUpdateFailed = "Failed to update task. Please try again."
	msgDeleteFailed = "Failed to delete task. Please try again."
)

// Backend is the authoritative store: the remote API client or the local store.
type Backend interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, in model.TaskCreate) (model.Task, error)
	Update(ctx context.Context, id int64, up model.TaskUpdate) (model.Task, error)
	Delete(ctx context.Context, id int64) error
	Toggle(ctx context.Context, id int64) (model.Task, error)
}

// State is an immutable snapshot for views.
type State struct {
	Tasks     []model.Task
	IsLoading bool
	Error     string
}

func (s State) Completed() int {
	n := 0
	for _, t := range s.Tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

func (s State) Pending() int { return len(s.Tasks) - s.Completed() }

type Options struct {
	// ToggleDebounce is the window in which repeated toggles of one task collapse
	// into a single request. Defaults to 300ms.
	ToggleDebounce time.Duration
	// RequestTimeout bounds debounced toggle requests, which have no caller context.
	RequestTimeout time.Duration
	Logger         *log.Logger
}

type pendingToggle struct {
	start   bool
	gen     uint64
	waiters []chan bool
}

type Manager struct {
	backend        Backend
	toggleDebounce time.Duration
	requestTimeout time.Duration
	logger         *log.Logger

	mu      sync.Mutex
	tasks   []model.Task
	loading bool
	errMsg  string
	closed  bool

	toggles map[int64]*pendingToggle
	// sending holds ids whose toggle request is in flight; closed when it returns.
	sending map[int64]chan struct{}
	timers  debounce.Keyed[int64]
	loads   singleflight.Group

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

func NewManager(backend Backend, opts Options) *Manager {
	d := opts.ToggleDebounce
	if d <= 0 {
		d = DefaultToggleDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		backend:        backend,
		toggleDebounce: d,
		requestTimeout: opts.RequestTimeout,
		logger:         logger,
		tasks:          []model.Task{},
		toggles:        map[int64]*pendingToggle{},
		sending:        map[int64]chan struct{}{},
		subs:           map[int]func(State){},
	}
}

// Snapshot returns a deep copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	return State{Tasks: cloneTasks(m.tasks), IsLoading: m.loading, Error: m.errMsg}
}

func (m *Manager) Find(id int64) (model.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// Subscribe registers fn to receive a snapshot after every state change. fn runs on
// the goroutine that changed the state and must not block.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()
	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	m.subMu.Lock()
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()
	if len(fns) == 0 {
		return
	}
	st := m.Snapshot()
	for _, fn := range fns {
		fn(st)
	}
}

// Load replaces the collection with the backend's. Concurrent calls share one
// request. Auth failures leave no visible error; the auth collaborator has already
// redirected. It reports whether the load succeeded.
func (m *Manager) Load(ctx context.Context) bool {
	v, _, _ := m.loads.Do("load", func() (any, error) {
		m.mu.Lock()
		m.loading = true
		m.errMsg = ""
		m.mu.Unlock()
		m.notify()

		tasks, err := m.backend.List(ctx)

		m.mu.Lock()
		m.loading = false
		if err != nil {
			m.tasks = []model.Task{}
			m.setErrorLocked(err, msgLoadFailed)
		} else {
			if tasks == nil {
				tasks = []model.Task{}
			}
			m.tasks = cloneTasks(tasks)
		}
		m.mu.Unlock()
		m.notify()
		return err == nil, nil
	})
	ok, _ := v.(bool)
	return ok
}

// Create sends in to the backend and appends the canonical task. Input is expected
// to be validated already (model.NormalizeCreate). Returns nil on failure.
func (m *Manager) Create(ctx context.Context, in model.TaskCreate) *model.Task {
	t, err := m.backend.Create(ctx, in)

	m.mu.Lock()
	if err != nil {
		m.setErrorLocked(err, msgCreateFailed)
		m.mu.Unlock()
		m.notify()
		return nil
	}
	m.tasks = append(m.tasks, t.Clone())
	m.errMsg = ""
	m.mu.Unlock()
	m.notify()
	return &t
}

// Update applies up locally, then confirms with the backend. On failure the task is
// restored exactly as it was and nil is returned.
func (m *Manager) Update(ctx context.Context, id int64, up model.TaskUpdate) *model.Task {
	t, err := optimistic(m,
		func() (rollback func()) {
			i := m.indexLocked(id)
			if i < 0 {
				return func() {}
			}
			original := m.tasks[i].Clone()
			m.tasks[i] = up.Apply(m.tasks[i])
			return func() { m.restoreLocked(id, original) }
		},
		func() (model.Task, error) { return m.backend.Update(ctx, id, up) },
		func(t model.Task) { m.reconcileLocked(id, t) },
		msgUpdateFailed,
	)
	if err != nil {
		return nil
	}
	return &t
}

// Delete removes the task locally, then confirms with the backend. A failure restores
// the whole previous collection. A task the backend no longer has counts as deleted.
func (m *Manager) Delete(ctx context.Context, id int64) bool {
	_, err := optimistic(m,
		func() (rollback func()) {
			prev := m.tasks
			next := make([]model.Task, 0, len(prev))
			for _, t := range prev {
				if t.ID != id {
					next = append(next, t)
				}
			}
			m.tasks = next
			return func() { m.tasks = prev }
		},
		func() (struct{}, error) {
			err := m.backend.Delete(ctx, id)
			if errors.Is(err, apperr.ErrNotFound) {
				m.logger.Debug("task already gone", "id", id)
				return struct{}{}, nil
			}
			return struct{}{}, err
		},
		nil,
		msgDeleteFailed,
	)
	return err == nil
}

func (m *Manager) ClearError() {
	m.mu.Lock()
	changed := m.errMsg != ""
	m.errMsg = ""
	m.mu.Unlock()
	if changed {
		m.notify()
	}
}

// Close cancels pending debounced toggles; their callers receive false. In-flight
// requests still complete.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	pending := m.toggles
	m.toggles = map[int64]*pendingToggle{}
	m.mu.Unlock()

	m.timers.Stop()
	for _, p := range pending {
		resolve(p.waiters, false)
	}
}

// setErrorLocked records the user-facing message for err. Auth failures are silent.
func (m *Manager) setErrorLocked(err error, fallback string) {
	if apperr.IsAuth(err) {
		m.logger.Debug("auth required", "err", err)
		return
	}
	m.logger.Debug("operation failed", "err", err)
	m.errMsg = apperr.UserMessageOf(err, fallback)
}

func (m *Manager) indexLocked(id int64) int {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// restoreLocked puts back a task snapshot after a failed edit. A toggle of id that
// is pending or in flight keeps its completed flag.
func (m *Manager) restoreLocked(id int64, t model.Task) {
	i := m.indexLocked(id)
	if i < 0 {
		return
	}
	if m.toggles[id] != nil || m.sending[id] != nil {
		t.Completed = m.tasks[i].Completed
	}
	m.tasks[i] = t.Clone()
}

// reconcileLocked folds a backend result for id into local state. While a toggle of
// id is pending or in flight the local completed flag belongs to the toggle: a
// pending burst takes the backend value as its new starting point, and an in-flight
// request reconciles the flag itself when it returns.
func (m *Manager) reconcileLocked(id int64, t model.Task) {
	i := m.indexLocked(id)
	if i < 0 {
		return
	}
	if p := m.toggles[id]; p != nil {
		p.start = t.Completed
		t.Completed = m.tasks[i].Completed
	} else if m.sending[id] != nil {
		t.Completed = m.tasks[i].Completed
	}
	m.tasks[i] = t.Clone()
}

func cloneTasks(in []model.Task) []model.Task {
	out := make([]model.Task, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
