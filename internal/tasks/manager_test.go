package tasks

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/apperr"
	"taskflow-cli/internal/auth"
	"taskflow-cli/internal/fakeapi"
	"taskflow-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow = 80 * time.Millisecond

func newRemote(t *testing.T, token string) (*Manager, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New("secret")
	srv := fake.Listen()
	t.Cleanup(srv.Close)
	client := api.New(api.Options{BaseURL: srv.URL, Tokens: auth.StaticToken(token)})
	m := NewManager(client, Options{ToggleDebounce: testWindow, RequestTimeout: 5 * time.Second})
	t.Cleanup(m.Close)
	return m, fake
}

func seeded(t *testing.T, tasks ...model.Task) (*Manager, *fakeapi.Server) {
	t.Helper()
	m, fake := newRemote(t, "secret")
	fake.Seed(tasks...)
	require.True(t, m.Load(context.Background()))
	return m, fake
}

func waitOutcome(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case ok := <-ch:
		return ok
	case <-time.After(5 * time.Second):
		t.Fatalf("toggle outcome never arrived")
		return false
	}
}

func TestLoad_ReplacesCollectionInServerOrder(t *testing.T) {
	m, _ := seeded(t,
		model.Task{ID: 3, Title: "c"},
		model.Task{ID: 1, Title: "a"},
		model.Task{ID: 2, Title: "b"},
	)
	st := m.Snapshot()
	require.Len(t, st.Tasks, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{st.Tasks[0].ID, st.Tasks[1].ID, st.Tasks[2].ID})
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
}

func TestLoad_FailureSetsMessageAndEmptiesCollection(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})
	fake.FailNext(http.MethodGet, http.StatusInternalServerError, "boom")

	assert.False(t, m.Load(context.Background()))
	st := m.Snapshot()
	assert.Empty(t, st.Tasks)
	assert.Equal(t, apperr.MsgServer, st.Error)
	assert.False(t, st.IsLoading)
}

func TestLoad_AuthFailureIsSilent(t *testing.T) {
	m, _ := newRemote(t, "")
	assert.False(t, m.Load(context.Background()))
	assert.Empty(t, m.Snapshot().Error)
}

func TestLoad_ConcurrentCallsShareOneRequest(t *testing.T) {
	m, fake := newRemote(t, "secret")
	release := fake.Hold(http.MethodGet)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Load(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return m.Snapshot().IsLoading }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	assert.Equal(t, 1, fake.CountCalls(http.MethodGet, "/api/tasks"))
}

func TestCreate_AppendsCanonicalTask(t *testing.T) {
	m, _ := seeded(t, model.Task{ID: 1, Title: "first"})

	in, err := model.NormalizeCreate("  Buy milk ", " 2 liters ")
	require.NoError(t, err)
	got := m.Create(context.Background(), in)
	require.NotNil(t, got)

	st := m.Snapshot()
	require.Len(t, st.Tasks, 2)
	last := st.Tasks[1]
	assert.Equal(t, got.ID, last.ID)
	assert.NotZero(t, last.ID)
	assert.Equal(t, "Buy milk", last.Title)
	assert.Equal(t, "2 liters", last.Description)
	assert.False(t, last.Completed)
	assert.NotNil(t, last.UpdatedAt)
}

func TestCreate_FailureLeavesCollectionAndSetsError(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "first"})
	before := m.Snapshot().Tasks
	fake.FailNext(http.MethodPost, http.StatusUnprocessableEntity, "title: too long")

	got := m.Create(context.Background(), model.TaskCreate{Title: "x"})
	assert.Nil(t, got)
	st := m.Snapshot()
	assert.Equal(t, before, st.Tasks)
	assert.Equal(t, "title: too long", st.Error)
}

func TestCreate_InvalidTitleNeverReachesBackend(t *testing.T) {
	m, fake := seeded(t)
	for _, title := range []string{"", "   ", strings.Repeat("x", 201)} {
		_, err := model.NormalizeCreate(title, "")
		require.Error(t, err)
	}
	assert.Equal(t, 0, fake.CountCalls(http.MethodPost, "/api/tasks"))
	assert.Empty(t, m.Snapshot().Tasks)
}

func TestUpdate_OptimisticThenReconciled(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "Old", Description: "keep"})
	release := fake.Hold(http.MethodPut)

	done := make(chan *model.Task, 1)
	go func() { done <- m.Update(context.Background(), 1, model.TaskUpdate{Title: model.StrPtr("New")}) }()

	require.Eventually(t, func() bool {
		tk, _ := m.Find(1)
		return tk.Title == "New"
	}, time.Second, 5*time.Millisecond, "optimistic title should be visible before confirmation")
	release()

	got := <-done
	require.NotNil(t, got)
	tk, _ := m.Find(1)
	assert.Equal(t, "New", tk.Title)
	assert.Equal(t, "keep", tk.Description)
	assert.Equal(t, *got.UpdatedAt, *tk.UpdatedAt)
}

func TestUpdate_FailureRestoresExactTask(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "Old", Description: "d"}, model.Task{ID: 2, Title: "Other"})
	before, _ := m.Find(1)
	fake.FailNext(http.MethodPut, http.StatusInternalServerError, "")

	got := m.Update(context.Background(), 1, model.TaskUpdate{Title: model.StrPtr("New")})
	assert.Nil(t, got)

	after, _ := m.Find(1)
	assert.Equal(t, before, after)
	assert.Equal(t, apperr.MsgServer, m.Snapshot().Error)
}

func TestDelete_OptimisticRemovalAndRollback(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"}, model.Task{ID: 2, Title: "b"}, model.Task{ID: 3, Title: "c"})
	before := m.Snapshot().Tasks

	release := fake.Hold(http.MethodDelete)
	fake.FailNext(http.MethodDelete, http.StatusServiceUnavailable, "")
	done := make(chan bool, 1)
	go func() { done <- m.Delete(context.Background(), 2) }()

	require.Eventually(t, func() bool { return len(m.Snapshot().Tasks) == 2 }, time.Second, 5*time.Millisecond)
	release()

	assert.False(t, <-done)
	st := m.Snapshot()
	assert.Equal(t, before, st.Tasks)
	assert.Equal(t, apperr.MsgServer, st.Error)
}

func TestDelete_SuccessClearsPreviousError(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"}, model.Task{ID: 2, Title: "b"})
	fake.FailNext(http.MethodPut, http.StatusTooManyRequests, "")
	m.Update(context.Background(), 1, model.TaskUpdate{Title: model.StrPtr("x")})
	require.Equal(t, apperr.MsgRateLimited, m.Snapshot().Error)

	assert.True(t, m.Delete(context.Background(), 2))
	st := m.Snapshot()
	assert.Empty(t, st.Error)
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, int64(1), st.Tasks[0].ID)
}

func TestDelete_AlreadyGoneCountsAsDeleted(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})
	fake.FailNext(http.MethodDelete, http.StatusNotFound, "Task not found")

	assert.True(t, m.Delete(context.Background(), 1))
	st := m.Snapshot()
	assert.Empty(t, st.Tasks)
	assert.Empty(t, st.Error)
}

func TestToggle_BurstCollapsesIntoOneRequest(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})

	first := m.ToggleComplete(1)
	tk, _ := m.Find(1)
	assert.True(t, tk.Completed, "flip is visible immediately")
	assert.True(t, m.TogglePending(1))

	time.Sleep(testWindow / 4)
	second := m.ToggleComplete(1)
	time.Sleep(testWindow / 4)
	third := m.ToggleComplete(1)

	assert.True(t, waitOutcome(t, first))
	assert.True(t, waitOutcome(t, second))
	assert.True(t, waitOutcome(t, third))

	assert.Equal(t, 1, fake.CountCalls(http.MethodPatch, "/api/tasks/1/complete"))
	assert.Equal(t, 0, fake.CountCalls(http.MethodPut, "/api/tasks/1"))
	tk, _ = m.Find(1)
	assert.True(t, tk.Completed)
	assert.True(t, fake.Tasks()[0].Completed)
}

func TestToggle_DoubleToggleSendsOneIdempotentUpdate(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})

	a := m.ToggleComplete(1)
	time.Sleep(testWindow / 4)
	b := m.ToggleComplete(1)
	assert.True(t, waitOutcome(t, a))
	assert.True(t, waitOutcome(t, b))

	assert.Equal(t, 0, fake.CountCalls(http.MethodPatch, "/api/tasks"))
	assert.Equal(t, 1, fake.CountCalls(http.MethodPut, "/api/tasks/1"))
	tk, _ := m.Find(1)
	assert.False(t, tk.Completed)
	assert.False(t, fake.Tasks()[0].Completed)
}

func TestToggle_DistinctTasksAreIndependent(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"}, model.Task{ID: 2, Title: "b", Completed: true})

	a := m.ToggleComplete(1)
	b := m.ToggleComplete(2)
	assert.True(t, waitOutcome(t, a))
	assert.True(t, waitOutcome(t, b))

	assert.Equal(t, 2, fake.CountCalls(http.MethodPatch, "/api/tasks"))
	t1, _ := m.Find(1)
	t2, _ := m.Find(2)
	assert.True(t, t1.Completed)
	assert.False(t, t2.Completed)
}

func TestToggle_FailureRevertsToWindowStart(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})
	fake.FailNext(http.MethodPatch, http.StatusInternalServerError, "")

	assert.False(t, waitOutcome(t, m.ToggleComplete(1)))
	tk, _ := m.Find(1)
	assert.False(t, tk.Completed)
	assert.Equal(t, apperr.MsgServer, m.Snapshot().Error)

	m.ClearError()
	assert.Empty(t, m.Snapshot().Error)
}

func TestToggle_UnknownTask(t *testing.T) {
	m, fake := seeded(t)
	assert.False(t, waitOutcome(t, m.ToggleComplete(42)))
	assert.Len(t, fake.Calls(), 1, "only the initial load")
}

func TestToggle_DeletedDuringWindowSendsNothing(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})
	ch := m.ToggleComplete(1)
	require.True(t, m.Delete(context.Background(), 1))
	assert.False(t, waitOutcome(t, ch))
	assert.Equal(t, 0, fake.CountCalls(http.MethodPatch, "/api/tasks"))
}

func TestToggle_WhileEarlierRequestInFlight(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})
	release := fake.Hold(http.MethodPatch)
	defer release()

	first := m.ToggleComplete(1)
	require.Eventually(t, func() bool {
		return fake.CountCalls(http.MethodPatch, "/api/tasks/1/complete") == 1
	}, 5*time.Second, 5*time.Millisecond)

	second := m.ToggleComplete(1)
	tk, _ := m.Find(1)
	assert.False(t, tk.Completed, "second flip is visible immediately")

	// The second burst waits for the first request instead of racing it.
	time.Sleep(3 * testWindow)
	assert.Equal(t, 1, fake.CountCalls(http.MethodPatch, "/api/tasks"))
	assert.True(t, m.TogglePending(1))

	release()
	assert.True(t, waitOutcome(t, first))
	assert.True(t, waitOutcome(t, second))

	tk, _ = m.Find(1)
	assert.False(t, tk.Completed)
	assert.False(t, fake.Tasks()[0].Completed)
	assert.Equal(t, 2, fake.CountCalls(http.MethodPatch, "/api/tasks/1/complete"))
	assert.Equal(t, 0, fake.CountCalls(http.MethodPut, "/api/tasks"))
	assert.False(t, m.TogglePending(1))
}

func TestToggle_FailedRequestWithNewerBurstPending(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})
	fake.FailNext(http.MethodPatch, http.StatusInternalServerError, "")
	release := fake.Hold(http.MethodPatch)
	defer release()

	first := m.ToggleComplete(1)
	require.Eventually(t, func() bool {
		return fake.CountCalls(http.MethodPatch, "/api/tasks/1/complete") == 1
	}, 5*time.Second, 5*time.Millisecond)
	second := m.ToggleComplete(1)
	third := m.ToggleComplete(1)

	release()
	assert.False(t, waitOutcome(t, first))
	assert.True(t, waitOutcome(t, second))
	assert.True(t, waitOutcome(t, third))

	// The server never changed, so the newer burst's final value still needs a flip.
	tk, _ := m.Find(1)
	assert.True(t, tk.Completed)
	assert.True(t, fake.Tasks()[0].Completed)
}

func TestToggle_EditInsideWindowKeepsToggle(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})

	ch := m.ToggleComplete(1)
	got := m.Update(context.Background(), 1, model.TaskUpdate{Title: model.StrPtr("b")})
	require.NotNil(t, got)

	tk, _ := m.Find(1)
	assert.Equal(t, "b", tk.Title)
	assert.True(t, tk.Completed, "edit response must not undo the pending toggle")

	assert.True(t, waitOutcome(t, ch))
	tk, _ = m.Find(1)
	assert.True(t, tk.Completed)
	assert.Equal(t, "b", tk.Title)
	assert.True(t, fake.Tasks()[0].Completed)
	assert.Equal(t, 1, fake.CountCalls(http.MethodPatch, "/api/tasks/1/complete"))
}

func TestToggle_FailedEditInsideWindowKeepsToggle(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})
	fake.FailNext(http.MethodPut, http.StatusInternalServerError, "")

	ch := m.ToggleComplete(1)
	assert.Nil(t, m.Update(context.Background(), 1, model.TaskUpdate{Title: model.StrPtr("b")}))

	tk, _ := m.Find(1)
	assert.Equal(t, "a", tk.Title)
	assert.True(t, tk.Completed)

	assert.True(t, waitOutcome(t, ch))
	assert.True(t, fake.Tasks()[0].Completed)
}

func TestClose_CancelsPendingToggles(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 1, Title: "a"})
	ch := m.ToggleComplete(1)
	m.Close()
	assert.False(t, waitOutcome(t, ch))
	time.Sleep(2 * testWindow)
	assert.Equal(t, 0, fake.CountCalls(http.MethodPatch, "/api/tasks"))
	assert.False(t, waitOutcome(t, m.ToggleComplete(1)))
}

func TestScenario_CreateThenToggle(t *testing.T) {
	m, _ := seeded(t)

	in, err := model.NormalizeCreate("Buy milk", "")
	require.NoError(t, err)
	created := m.Create(context.Background(), in)
	require.NotNil(t, created)

	st := m.Snapshot()
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, "Buy milk", st.Tasks[0].Title)
	assert.False(t, st.Tasks[0].Completed)

	assert.True(t, waitOutcome(t, m.ToggleComplete(created.ID)))
	tk, ok := m.Find(created.ID)
	require.True(t, ok)
	assert.True(t, tk.Completed)
}

func TestScenario_FailedTitleUpdateReverts(t *testing.T) {
	m, fake := seeded(t, model.Task{ID: 5, Title: "Original"})
	fake.FailNext(http.MethodPut, http.StatusBadGateway, "")

	assert.Nil(t, m.Update(context.Background(), 5, model.TaskUpdate{Title: model.StrPtr("New")}))
	tk, _ := m.Find(5)
	assert.Equal(t, "Original", tk.Title)
	assert.NotEmpty(t, m.Snapshot().Error)
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	m, _ := seeded(t, model.Task{ID: 1, Title: "a"})

	var mu sync.Mutex
	var seen []State
	unsub := m.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	m.Update(context.Background(), 1, model.TaskUpdate{Title: model.StrPtr("b")})
	unsub()
	m.Update(context.Background(), 1, model.TaskUpdate{Title: model.StrPtr("c")})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2, "optimistic apply and reconcile")
	assert.Equal(t, "b", seen[0].Tasks[0].Title)
}

func TestFlush_SendsPendingTogglesImmediately(t *testing.T) {
	fake := fakeapi.New("secret")
	srv := fake.Listen()
	t.Cleanup(srv.Close)
	fake.Seed(model.Task{ID: 1, Title: "a"}, model.Task{ID: 2, Title: "b"})
	client := api.New(api.Options{BaseURL: srv.URL, Tokens: auth.StaticToken("secret")})
	m := NewManager(client, Options{ToggleDebounce: time.Hour})
	t.Cleanup(m.Close)
	require.True(t, m.Load(context.Background()))

	a := m.ToggleComplete(1)
	b := m.ToggleComplete(2)
	m.Flush()

	assert.True(t, waitOutcome(t, a))
	assert.True(t, waitOutcome(t, b))
	assert.False(t, m.TogglePending(1))
	assert.Equal(t, 2, fake.CountCalls(http.MethodPatch, "/api/tasks"))
}
