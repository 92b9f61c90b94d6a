package timer

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hirestimer/timercore/internal/bucketset"
	"github.com/hirestimer/timercore/internal/kerneltimer"
)

// fakeKernel is a deterministic stand-in for kerneltimer.Timer: Arm
// records the requested deadline instead of touching the OS, and Wait
// blocks until the test explicitly signals a firing.
type fakeKernel struct {
	mu      sync.Mutex
	armed   int64
	signal  chan struct{}
	closed  atomic.Bool
	armLog  []int64
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{signal: make(chan struct{}, 64)}
}

func (k *fakeKernel) Arm(absoluteNanos int64) error {
	k.mu.Lock()
	k.armed = absoluteNanos
	k.armLog = append(k.armLog, absoluteNanos)
	k.mu.Unlock()
	return nil
}

func (k *fakeKernel) fire() { k.signal <- struct{}{} }

func (k *fakeKernel) Wait() (uint64, error) {
	if _, ok := <-k.signal; !ok {
		return 0, kerneltimer.ErrClosed
	}
	return 1, nil
}

func (k *fakeKernel) Close() error {
	if k.closed.CompareAndSwap(false, true) {
		close(k.signal)
	}
	return nil
}

func newTestManager(start int64) (*Manager, *fakeKernel, *int64) {
	kt := newFakeKernel()
	clock := start
	m := &Manager{
		kernel:  kt,
		set:     bucketset.New(start),
		logger:  slog.New(slog.NewTextHandler(discard{}, nil)),
		clockFn: func() int64 { return atomic.LoadInt64(&clock) },
	}
	return m, kt, &clock
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestArmInsertsAndArmsKernelOnDecrease(t *testing.T) {
	m, kt, _ := newTestManager(0)
	var ran atomic.Bool
	tm := newTimer(m, func() { ran.Store(true) }, false)

	tm.Arm(10 * time.Millisecond)

	if !tm.Armed() {
		t.Fatalf("expected timer armed")
	}
	kt.mu.Lock()
	armed := kt.armed
	kt.mu.Unlock()
	if armed != tm.Deadline() {
		t.Fatalf("kernel timer armed to %d, want %d", armed, tm.Deadline())
	}
}

func TestArmOnArmedTimerPanics(t *testing.T) {
	m, _, _ := newTestManager(0)
	tm := newTimer(m, func() {}, false)
	tm.Arm(time.Millisecond)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic arming an already-armed timer")
		}
	}()
	tm.Arm(time.Millisecond)
}

func TestCancelBeforeDrainSuppressesCallback(t *testing.T) {
	m, _, _ := newTestManager(0)
	var ran atomic.Bool
	tm := newTimer(m, func() { ran.Store(true) }, false)
	tm.Arm(time.Millisecond)

	if !tm.Cancel() {
		t.Fatalf("expected Cancel to report true the first time")
	}
	if tm.Cancel() {
		t.Fatalf("expected second Cancel to be idempotent (false)")
	}

	m.drainOnce()
	if ran.Load() {
		t.Fatalf("cancelled timer's callback ran")
	}
}

func TestDrainDispatchesDueTimersInline(t *testing.T) {
	m, _, clock := newTestManager(0)
	var fired atomic.Int32
	tm := newTimer(m, func() { fired.Add(1) }, false)
	tm.Arm(5 * time.Millisecond)

	atomic.StoreInt64(clock, int64(10*time.Millisecond))
	m.drainOnce()

	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want 1", fired.Load())
	}
	if tm.Armed() {
		t.Fatalf("non-periodic timer should be Fired (not armed) after drain")
	}
}

func TestPeriodicTimerReArmsAfterDrain(t *testing.T) {
	m, _, clock := newTestManager(0)
	var fired atomic.Int32
	tm := newTimer(m, func() { fired.Add(1) }, false)
	tm.ArmPeriodic(5 * time.Millisecond)

	atomic.StoreInt64(clock, int64(6*time.Millisecond))
	m.drainOnce()
	if fired.Load() != 1 {
		t.Fatalf("fired = %d after first drain, want 1", fired.Load())
	}
	if !tm.Armed() {
		t.Fatalf("periodic timer should remain armed after firing")
	}

	atomic.StoreInt64(clock, int64(12*time.Millisecond))
	m.drainOnce()
	if fired.Load() != 2 {
		t.Fatalf("fired = %d after second drain, want 2", fired.Load())
	}
}

func TestOutOfOrderArmingStillDispatchesEveryDueTimer(t *testing.T) {
	// Arming order (A, B, C) deliberately does not match deadline order
	// (B, C, A); this only asserts that every due timer fires exactly once
	// by the time they're all due. Within a single drain pass the relative
	// order of same-bucket timers is unspecified (spec.md §4.1) and is not
	// asserted here.
	m, _, clock := newTestManager(0)
	var mu sync.Mutex
	fired := make(map[string]bool)
	record := func(name string) func() {
		return func() {
			mu.Lock()
			fired[name] = true
			mu.Unlock()
		}
	}

	a := newTimer(m, record("A"), false)
	a.Arm(14 * time.Millisecond)
	b := newTimer(m, record("B"), false)
	b.Arm(10 * time.Millisecond)
	c := newTimer(m, record("C"), false)
	c.Arm(12 * time.Millisecond)

	atomic.StoreInt64(clock, int64(50*time.Millisecond))
	m.drainOnce()

	mu.Lock()
	defer mu.Unlock()
	if !fired["A"] || !fired["B"] || !fired["C"] {
		t.Fatalf("fired = %v, want A, B, and C all fired", fired)
	}
}

func TestCallbackPanicDoesNotStopDrain(t *testing.T) {
	m, _, clock := newTestManager(0)
	var second atomic.Bool
	t1 := newTimer(m, func() { panic("boom") }, false)
	t1.Arm(time.Millisecond)
	t2 := newTimer(m, func() { second.Store(true) }, false)
	t2.Arm(2 * time.Millisecond)

	atomic.StoreInt64(clock, int64(5*time.Millisecond))
	m.drainOnce()

	if !second.Load() {
		t.Fatalf("second timer's callback did not run after the first panicked")
	}
}
