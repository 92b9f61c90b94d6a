package timer

import (
	"time"

	"github.com/gorhill/cronexpr"
)

// Cron arms a timer against a cron expression, supplementing the core with
// the convenience the teacher's timing.Wheel.Cron offered. Unlike a
// periodic Timer, a cron schedule's inter-firing gap is not a fixed
// duration, so each firing recomputes and re-arms for cronExpr.Next
// instead of using Timer's native period field.
func Cron(expr string, callback func()) (*Timer, error) {
	return cronOn(Instance(), expr, callback)
}

func cronOn(mgr *Manager, expr string, callback func()) (*Timer, error) {
	schedule, err := cronexpr.Parse(expr)
	if err != nil {
		return nil, ErrInvalidCron
	}

	var t *Timer
	var armNext func(from time.Time)
	armNext = func(from time.Time) {
		next := schedule.Next(from)
		t.ArmAt(next, 0)
	}

	t = newTimer(mgr, func() {
		fired := time.Now()
		defer armNext(fired)
		callback()
	}, false)

	armNext(time.Now())
	return t, nil
}

// Cron registers a cron-scheduled timer under name in n, replacing any
// timer already registered there.
func (n *Named) Cron(name string, expr string, callback func()) error {
	t, err := cronOn(n.mgr, expr, callback)
	if err != nil {
		return err
	}
	n.replace(name, t)
	return nil
}
