package timer

import (
	"time"

	"github.com/hirestimer/timercore/chrono"
)

// DailyAt arms a timer to fire every day at the given hour/minute/second,
// using chrono.NextMoment to find today's or tomorrow's occurrence and
// re-arming itself for the day after on every firing. Like Cron, this
// cannot use Timer's native period field because a day is not always
// exactly 24h at the wall-clock level (DST transitions).
func DailyAt(hour, min, sec int, callback func()) *Timer {
	return dailyAtOn(Instance(), hour, min, sec, callback)
}

func dailyAtOn(mgr *Manager, hour, min, sec int, callback func()) *Timer {
	var t *Timer
	var armNext func()
	armNext = func() {
		next := chrono.NextMoment(time.Now(), hour, min, sec)
		t.ArmAt(next, 0)
	}

	t = newTimer(mgr, func() {
		defer armNext()
		callback()
	}, false)

	armNext()
	return t
}

// DailyAt registers a daily timer under name in n, replacing any timer
// already registered there.
func (n *Named) DailyAt(name string, hour, min, sec int, callback func()) {
	t := dailyAtOn(n.mgr, hour, min, sec, callback)
	n.replace(name, t)
}
