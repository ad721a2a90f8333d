package tasks

import (
	"context"
	"sync"
	"time"

	"taskflow-cli/internal/model"
)

// ToggleComplete flips the task's completed flag immediately and schedules the
// backend confirmation after the debounce window. Toggling the same task again
// inside the window replaces the scheduled request, so a burst costs one round trip
// carrying the final value. Every caller in the burst receives the single outcome.
//
// The returned channel yields false right away when the task is unknown or the
// manager is closed.
func (m *Manager) ToggleComplete(id int64) <-chan bool {
	done := make(chan bool, 1)

	m.mu.Lock()
	i := m.indexLocked(id)
	if m.closed || i < 0 {
		m.mu.Unlock()
		done <- false
		close(done)
		return done
	}

	p := m.toggles[id]
	if p == nil {
		p = &pendingToggle{start: m.tasks[i].Completed}
		m.toggles[id] = p
	}
	m.tasks[i].Completed = !m.tasks[i].Completed
	p.gen++
	gen := p.gen
	p.waiters = append(p.waiters, done)
	m.timers.Schedule(id, m.toggleDebounce, func() { m.flushToggle(id, gen) })
	m.mu.Unlock()

	m.notify()
	return done
}

// TogglePending reports whether a toggle of id is still waiting for the backend,
// either inside its debounce window or in flight.
func (m *Manager) TogglePending(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toggles[id] != nil || m.sending[id] != nil
}

// Flush sends every pending toggle now instead of waiting for its window to close,
// and returns once all toggle requests, including ones already in flight, have
// completed.
func (m *Manager) Flush() {
	for {
		m.mu.Lock()
		ids := make([]int64, 0, len(m.toggles))
		for id := range m.toggles {
			ids = append(ids, id)
		}
		busy := make([]chan struct{}, 0, len(m.sending))
		for _, ch := range m.sending {
			busy = append(busy, ch)
		}
		m.mu.Unlock()
		if len(ids) == 0 && len(busy) == 0 {
			return
		}

		var wg sync.WaitGroup
		for _, id := range ids {
			// A timer that already fired is sending, or waiting to send, on its own.
			if !m.timers.Cancel(id) {
				continue
			}
			m.mu.Lock()
			p := m.toggles[id]
			var gen uint64
			if p != nil {
				gen = p.gen
			}
			m.mu.Unlock()
			if p == nil {
				continue
			}
			wg.Add(1)
			go func(id int64, gen uint64) {
				defer wg.Done()
				m.flushToggle(id, gen)
			}(id, gen)
		}
		wg.Wait()
		for _, ch := range busy {
			<-ch
		}
		if len(busy) == 0 {
			// Only fired timers remain; give them a moment to take over.
			time.Sleep(time.Millisecond)
		}
	}
}

func (m *Manager) flushToggle(id int64, gen uint64) {
	m.mu.Lock()
	var p *pendingToggle
	for {
		p = m.toggles[id]
		if p == nil || p.gen != gen {
			m.mu.Unlock()
			return
		}
		// One toggle request per task at a time. The burst stays pending while the
		// earlier request finishes, so that request's result becomes its start.
		busy := m.sending[id]
		if busy == nil {
			break
		}
		m.mu.Unlock()
		<-busy
		m.mu.Lock()
	}
	delete(m.toggles, id)
	i := m.indexLocked(id)
	if i < 0 {
		// Deleted while the window was open; nothing left to confirm.
		m.mu.Unlock()
		resolve(p.waiters, false)
		return
	}
	final := m.tasks[i].Completed
	done := make(chan struct{})
	m.sending[id] = done
	m.mu.Unlock()

	ctx := context.Background()
	if m.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.requestTimeout)
		defer cancel()
	}

	_, err := optimistic(m,
		func() (rollback func()) {
			return func() {
				delete(m.sending, id)
				if next := m.toggles[id]; next != nil {
					// The server still holds p.start; a newer burst is measured from it.
					next.start = p.start
					return
				}
				if j := m.indexLocked(id); j >= 0 {
					m.tasks[j].Completed = p.start
				}
			}
		},
		func() (model.Task, error) {
			if final != p.start {
				return m.backend.Toggle(ctx, id)
			}
			// The burst cancelled itself out; confirm the value idempotently.
			return m.backend.Update(ctx, id, model.TaskUpdate{Completed: model.BoolPtr(final)})
		},
		func(t model.Task) {
			delete(m.sending, id)
			m.reconcileLocked(id, t)
		},
		msgUpdateFailed,
	)
	close(done)
	resolve(p.waiters, err == nil)
}

func resolve(waiters []chan bool, ok bool) {
	for _, w := range waiters {
		w <- ok
		close(w)
	}
}
