// Package timer is the hierarchical, kernel-timer-backed scheduling core:
// a process-wide Manager arbitrates a bucketed Timer Set and an elastic
// worker pool, the way the teacher's timing.Wheel arbitrates its own
// bucket array and executor, generalized to a singleton per spec.md §9.
package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hirestimer/timercore/internal/bucketset"
)

var idSeq atomic.Int64

// Timer is a single scheduled callback. The zero value is not usable;
// construct with NewTimer or Manager.FireAfter.
//
// A Timer moves through the states spec.md §4.2 names: Idle, Pending,
// Expired (transient, only visible mid-drain), and Fired. Arm moves
// Idle/Fired to Pending; Cancel moves Pending back to Idle; a drain pass
// moves Pending through Expired to Fired (or back to Pending, for a
// periodic timer).
type Timer struct {
	id       int64
	mgr      *Manager
	callback func()

	// needDisposer marks a self-owned timer (created by Manager.FireAfter):
	// the caller keeps no reference, and the timer's storage becomes
	// unreachable on its own once the manager drops it from the set.
	needDisposer bool

	mu       timerState
	deadline atomic.Int64
	elem     *bucketset.Element
}

// timerState holds the three flags spec.md §4.2's state machine is defined
// over, under their own lock so Cancel and a concurrent drain pass never
// observe a torn state.
type timerState struct {
	sync.Mutex
	armed   bool
	queued  bool
	expired bool
	period  int64 // nanoseconds; 0 means non-periodic
}

func newTimerState() timerState {
	return timerState{}
}

// NewTimer creates a caller-owned, unarmed Timer bound to the package-wide
// Manager. The caller must keep a reference to it for as long as it should
// stay armed.
func NewTimer(callback func()) *Timer {
	return newTimer(Instance(), callback, false)
}

func newTimer(mgr *Manager, callback func(), needDisposer bool) *Timer {
	t := &Timer{
		id:           idSeq.Add(1),
		mgr:          mgr,
		callback:     callback,
		needDisposer: needDisposer,
		mu:           newTimerState(),
	}
	t.elem = bucketset.NewElement(t)
	return t
}

// Deadline implements bucketset.Item.
func (t *Timer) Deadline() int64 { return t.deadline.Load() }

// ID returns the timer's process-unique identifier, stable for its
// lifetime.
func (t *Timer) ID() int64 { return t.id }

// Arm arms the timer to fire once, delta from now. Pre-condition: the
// timer must not already be armed; Arm panics otherwise, per spec.md §7's
// mandated assert on a precondition violation.
func (t *Timer) Arm(delta time.Duration) {
	t.mgr.arm(t, t.mgr.clock()+delta.Nanoseconds(), 0)
}

// ArmAt arms the timer to fire at the given absolute time, optionally
// repeating every period thereafter. A zero period means one-shot.
func (t *Timer) ArmAt(at time.Time, period time.Duration) {
	t.mgr.arm(t, t.mgr.toClock(at), period.Nanoseconds())
}

// ArmPeriodic arms the timer to fire every delta, starting delta from now.
func (t *Timer) ArmPeriodic(delta time.Duration) {
	now := t.mgr.clock()
	t.mgr.arm(t, now+delta.Nanoseconds(), delta.Nanoseconds())
}

// Rearm cancels the timer if armed, then arms it for delta from now.
//
// Per spec.md §9's open question on cadence: rearming a periodic timer
// mid-cycle does not preserve phase — the new period starts counting from
// this call, not from the original arm. This is the documented, if
// surprising, behavior; it is not silently resolved.
func (t *Timer) Rearm(delta time.Duration) {
	t.mgr.cancel(t)
	t.Arm(delta)
}

// RearmAt cancels the timer if armed, then arms it at the given absolute
// time with the given period (see Rearm's cadence note).
func (t *Timer) RearmAt(at time.Time, period time.Duration) {
	t.mgr.cancel(t)
	t.ArmAt(at, period)
}

// Cancel clears the armed flag and, if the timer was queued in the set,
// removes it. It returns false if the timer was not armed. Cancel is
// idempotent: calling it again on an already-cancelled timer also returns
// false and changes nothing.
func (t *Timer) Cancel() bool {
	return t.mgr.cancel(t)
}

// Armed reports whether the timer is currently armed.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.armed
}

// GetTimeout returns the absolute time the timer is currently set to fire
// at. Its value is meaningful only while Armed reports true.
func (t *Timer) GetTimeout() time.Time {
	return t.mgr.fromClock(t.Deadline())
}
