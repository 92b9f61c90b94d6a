package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hirestimer/timercore/internal/bucketset"
	"github.com/hirestimer/timercore/internal/kerneltimer"
	"github.com/hirestimer/timercore/workerpool"
)

var (
	instance     *Manager
	instanceOnce sync.Once
)

// Manager is the process-wide timer manager of spec.md §4.2: it owns the
// kernel timer, arbitrates access to the Timer Set, drains fired timers,
// and dispatches their callbacks. Obtain it with Instance; there is
// exactly one per process.
type Manager struct {
	kernel kerneltimer.Timer

	setMu sync.RWMutex
	set   *bucketset.Set

	armMu sync.Mutex // serializes kernel-timer re-arms against each other

	poolMu sync.RWMutex
	pool   *workerpool.Pool

	logger  *slog.Logger
	epoch   time.Time // wall-clock time at construction; toClock/fromClock convert against time.Now instead
	clockFn func() int64
}

// Instance returns the package-wide Manager, creating its kernel timer and
// starting its drain goroutine on first call.
func Instance() *Manager {
	instanceOnce.Do(func() {
		instance = newManager()
	})
	return instance
}

func newManager() *Manager {
	kt, err := kerneltimer.New()
	if err != nil {
		// Kernel timer creation is an OS-facility failure spec.md §7 says
		// bubbles to the caller of the API that triggered it; there is no
		// caller here because construction is implicit on first use, so
		// the only sound move left is to fail loudly rather than hand
		// back a Manager that can never arm anything.
		panic("timer: failed to create kernel timer: " + err.Error())
	}
	m := &Manager{
		kernel:  kt,
		set:     bucketset.New(kerneltimer.Now()),
		logger:  slog.Default(),
		epoch:   time.Now(),
		clockFn: kerneltimer.Now,
	}
	go m.drainLoop()
	return m
}

// SetWorkerPool installs the pool callbacks dispatch onto during a drain.
// If no pool is installed, callbacks run synchronously on the drain
// goroutine — correct, but a slow callback then delays every other due
// timer.
func (m *Manager) SetWorkerPool(pool *workerpool.Pool) {
	m.poolMu.Lock()
	m.pool = pool
	m.poolMu.Unlock()
}

// SetLogger overrides the logger used for OS-facility failures and
// recovered callback panics.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// FireAfter creates a self-owned timer (the caller keeps no reference) and
// arms it to fire once, delta from now.
func (m *Manager) FireAfter(delta time.Duration, callback func()) {
	t := newTimer(m, callback, true)
	t.Arm(delta)
}

// clock returns the manager's current monotonic-clock reading in
// nanoseconds, the same unit Timer.deadline is kept in.
func (m *Manager) clock() int64 { return m.clockFn() }

func (m *Manager) toClock(at time.Time) int64 {
	return m.clock() + int64(at.Sub(time.Now()))
}

func (m *Manager) fromClock(ns int64) time.Time {
	return time.Now().Add(time.Duration(ns - m.clock()))
}

// arm implements spec.md §4.2's arm: set expiry/period, mark
// armed+queued, insert into the set, and re-arm the kernel timer if the
// insert reports the earliest deadline decreased.
func (m *Manager) arm(t *Timer, until int64, period int64) {
	if period < 0 {
		panic(ErrInvalidPeriod)
	}

	t.mu.Lock()
	if t.mu.armed {
		t.mu.Unlock()
		panic(ErrAlreadyArmed)
	}
	t.mu.armed = true
	t.mu.queued = true
	t.mu.expired = false
	t.mu.period = period
	t.mu.Unlock()

	t.deadline.Store(until)

	m.setMu.Lock()
	decreased := m.set.Insert(t.elem)
	m.setMu.Unlock()

	if decreased {
		m.rearmKernel(until)
	}
}

// cancel implements spec.md §4.2's cancel.
func (m *Manager) cancel(t *Timer) bool {
	t.mu.Lock()
	if !t.mu.armed {
		t.mu.Unlock()
		return false
	}
	t.mu.armed = false
	wasQueued := t.mu.queued
	t.mu.queued = false
	t.mu.Unlock()

	if wasQueued {
		m.setMu.Lock()
		m.set.Remove(t.elem)
		m.setMu.Unlock()
	}
	return true
}

func (m *Manager) rearmKernel(until int64) {
	m.armMu.Lock()
	defer m.armMu.Unlock()
	if err := m.kernel.Arm(until); err != nil {
		m.logger.Error("timer: failed to arm kernel timer", "error", err)
	}
}

// drainLoop is the manager's single drain thread: it blocks on the kernel
// timer and, on every signal, performs exactly one drain pass per
// spec.md §4.2.
func (m *Manager) drainLoop() {
	for {
		_, err := m.kernel.Wait()
		if err == kerneltimer.ErrClosed {
			return
		}
		if err != nil {
			m.logger.Error("timer: kernel timer wait failed", "error", err)
			continue
		}
		m.drainOnce()
	}
}

// drainOnce runs one drain pass: expire due timers under the set's write
// lock, release the lock, then mark/re-arm/dispatch each one outside it so
// a callback arming or cancelling another timer never deadlocks on the set
// lock it would otherwise still be holding.
func (m *Manager) drainOnce() {
	now := m.clock()

	m.setMu.Lock()
	expired := m.set.Expire(now)
	m.setMu.Unlock()

	timers := make([]*Timer, 0, len(expired))
	for _, item := range expired {
		t := item.(*Timer)
		t.mu.Lock()
		t.mu.expired = true
		t.mu.Unlock()
		timers = append(timers, t)
	}

	for _, t := range timers {
		m.drainTimer(t, now)
	}

	m.setMu.RLock()
	empty := m.set.Empty()
	m.setMu.RUnlock()
	if !empty {
		m.rearmKernel(m.nextTimeout())
	}
}

func (m *Manager) nextTimeout() int64 {
	m.setMu.RLock()
	defer m.setMu.RUnlock()
	return m.set.GetNextTimeout()
}

// drainTimer implements drain-pass step 4 for a single timer: clear
// queued; drop it silently if it was cancelled concurrently (between
// Expire and this point); re-arm periodic timers against the new
// deadline; then dispatch the callback, onto the pool if one is set and
// running, otherwise inline.
func (m *Manager) drainTimer(t *Timer, now int64) {
	t.mu.Lock()
	t.mu.queued = false
	if !t.mu.armed {
		t.mu.Unlock()
		return
	}
	periodic := t.mu.period > 0
	if periodic {
		next := now + t.mu.period
		t.mu.queued = true
		t.mu.expired = false
		t.mu.Unlock()
		t.deadline.Store(next)

		m.setMu.Lock()
		decreased := m.set.Insert(t.elem)
		m.setMu.Unlock()
		if decreased {
			m.rearmKernel(next)
		}
	} else {
		t.mu.armed = false
		t.mu.Unlock()
	}

	m.dispatch(t.callback)
}

func (m *Manager) dispatch(callback func()) {
	guarded := func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("timer: callback panicked", "recovered", r)
			}
		}()
		callback()
	}

	m.poolMu.RLock()
	pool := m.pool
	m.poolMu.RUnlock()

	if pool != nil && !pool.Stopped() {
		pool.Submit(guarded)
		return
	}
	guarded()
}
