package tasks

// optimistic runs one optimistic mutation:
//
//  1. apply changes local state and returns the rollback for that change
//  2. remote asks the backend to confirm
//  3. on success reconcile (optional) folds the canonical result in and the error clears;
//     on failure rollback restores the snapshot and the error message is recorded
//
// apply, rollback and reconcile run with m.mu held; remote runs without it.
func optimistic[T any](m *Manager, apply func() (rollback func()), remote func() (T, error), reconcile func(T), fallbackMsg string) (T, error) {
	m.mu.Lock()
	rollback := apply()
	m.mu.Unlock()
	m.notify()

	v, err := remote()

	m.mu.Lock()
	if err != nil {
		rollback()
		m.setErrorLocked(err, fallbackMsg)
	} else {
		if reconcile != nil {
			reconcile(v)
		}
		m.errMsg = ""
	}
	m.mu.Unlock()
	m.notify()
	return v, err
}
