package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyed_CollapsesBurstIntoOneCall(t *testing.T) {
	var k Keyed[int64]
	var calls atomic.Int32
	var last atomic.Int32
	done := make(chan struct{}, 4)

	for i := 1; i <= 3; i++ {
		i := i
		superseded := k.Schedule(7, 40*time.Millisecond, func() {
			calls.Add(1)
			last.Store(int32(i))
			done <- struct{}{}
		})
		if want := i > 1; superseded != want {
			t.Fatalf("schedule %d: superseded=%v want %v", i, superseded, want)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced call never fired")
	}
	time.Sleep(60 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one call, got %d", got)
	}
	if got := last.Load(); got != 3 {
		t.Fatalf("expected the last scheduled fn to run, got %d", got)
	}
	if k.Pending(7) {
		t.Fatalf("expected nothing pending after fire")
	}
}

func TestKeyed_KeysAreIndependent(t *testing.T) {
	var k Keyed[string]
	var wg sync.WaitGroup
	var a, b atomic.Int32
	wg.Add(2)
	k.Schedule("a", 10*time.Millisecond, func() { a.Add(1); wg.Done() })
	k.Schedule("b", 10*time.Millisecond, func() { b.Add(1); wg.Done() })
	wg.Wait()
	if a.Load() != 1 || b.Load() != 1 {
		t.Fatalf("expected both keys to fire once: a=%d b=%d", a.Load(), b.Load())
	}
}

func TestKeyed_CancelAndStop(t *testing.T) {
	var k Keyed[int]
	var calls atomic.Int32
	k.Schedule(1, 20*time.Millisecond, func() { calls.Add(1) })
	k.Schedule(2, 20*time.Millisecond, func() { calls.Add(1) })

	if !k.Cancel(1) {
		t.Fatalf("expected Cancel to report a pending call")
	}
	if k.Cancel(1) {
		t.Fatalf("second Cancel should report nothing pending")
	}
	k.Stop()
	if k.Len() != 0 {
		t.Fatalf("expected no pending calls after Stop")
	}
	if k.Schedule(3, time.Millisecond, func() { calls.Add(1) }) {
		t.Fatalf("Schedule after Stop should be ignored")
	}

	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no calls, got %d", got)
	}
}
