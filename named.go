package timer

import (
	"sync"
	"time"
)

// Named is a registry of timers keyed by string, supplementing the core
// spec with the convenience the teacher's timing.Named offered: arming a
// name that already has a timer cancels the old one and replaces it,
// rather than requiring the caller to track a *Timer itself.
type Named struct {
	mgr    *Manager
	mu     sync.Mutex
	timers map[string]*Timer
}

// NewNamed returns a Named registry bound to mgr.
func NewNamed(mgr *Manager) *Named {
	return &Named{mgr: mgr, timers: make(map[string]*Timer)}
}

// After arms a one-shot timer under name, replacing any timer already
// registered there.
func (n *Named) After(name string, delta time.Duration, callback func()) {
	t := newTimer(n.mgr, callback, false)
	n.replace(name, t)
	t.Arm(delta)
}

// Loop arms a periodic timer under name with the given period, replacing
// any timer already registered there.
func (n *Named) Loop(name string, period time.Duration, callback func()) {
	t := newTimer(n.mgr, callback, false)
	n.replace(name, t)
	t.ArmPeriodic(period)
}

// Stop cancels and forgets the timer registered under name, if any.
func (n *Named) Stop(name string) {
	n.mu.Lock()
	t, ok := n.timers[name]
	delete(n.timers, name)
	n.mu.Unlock()
	if ok {
		t.Cancel()
	}
}

// Clear cancels and forgets every registered timer.
func (n *Named) Clear() {
	n.mu.Lock()
	timers := n.timers
	n.timers = make(map[string]*Timer)
	n.mu.Unlock()
	for _, t := range timers {
		t.Cancel()
	}
}

// Timer returns the timer currently registered under name, or nil.
func (n *Named) Timer(name string) *Timer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.timers[name]
}

func (n *Named) replace(name string, t *Timer) {
	n.mu.Lock()
	old, ok := n.timers[name]
	n.timers[name] = t
	n.mu.Unlock()
	if ok {
		old.Cancel()
	}
}
