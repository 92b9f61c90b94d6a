package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsTaskAndResolvesFuture(t *testing.T) {
	p := New(NewConfig().WithMaxIdle(2))
	defer p.Stop()

	future := SubmitFunc(p, func() int { return 42 })
	got, err := future.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestSubmitAfterStopFails(t *testing.T) {
	p := New(NewConfig())
	p.Stop()

	future := p.Submit(func() {})
	_, err := future.Wait()
	if err != ErrStopped {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestPanicInTaskDoesNotKillWorker(t *testing.T) {
	p := New(NewConfig())
	defer p.Stop()

	f1 := p.Submit(func() { panic("boom") })
	if _, err := f1.Wait(); err == nil {
		t.Fatalf("expected error from panicking task")
	}

	f2 := SubmitFunc(p, func() int { return 7 })
	got, err := f2.Wait()
	if err != nil || got != 7 {
		t.Fatalf("worker did not survive panic: got=%d err=%v", got, err)
	}
}

func TestAtExitHooksRunOnceBeforeJoin(t *testing.T) {
	p := New(NewConfig())
	var order []int
	var mu sync.Mutex
	p.AtExit(func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	})
	p.AtExit(func() {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	})
	p.Stop()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("at-exit hooks ran out of order: %v", order)
	}
}

func TestWorkerCountNeverExceedsCap(t *testing.T) {
	const maxIdle = 3
	p := New(NewConfig().WithMaxIdle(maxIdle))
	defer p.Stop()

	var peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Submit(func() {
				p.mu.Lock()
				if int64(p.workers) > peak.Load() {
					peak.Store(int64(p.workers))
				}
				p.mu.Unlock()
				time.Sleep(time.Millisecond)
			})
		}()
	}
	wg.Wait()

	if cap := int64(2*maxIdle + 1); peak.Load() > cap {
		t.Fatalf("peak worker count %d exceeded cap %d", peak.Load(), cap)
	}
}

func TestStoppedReflectsState(t *testing.T) {
	p := New(NewConfig())
	if p.Stopped() {
		t.Fatalf("fresh pool reports stopped")
	}
	p.Stop()
	if !p.Stopped() {
		t.Fatalf("stopped pool does not report stopped")
	}
}
