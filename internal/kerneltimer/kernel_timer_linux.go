//go:build linux

package kerneltimer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hirestimer/timercore/chrono"
)

// linuxTimer is a timerfd-backed Timer, created against CLOCK_MONOTONIC so
// its absolute deadlines share the epoch of the core's monotonic clock.
type linuxTimer struct {
	fd     int
	closed atomic.Bool
	mu     sync.Mutex // serializes Settime against concurrent Arm calls
}

// createRetries bounds the exponential backoff applied to transient
// timerfd_create failures (EMFILE/ENFILE under fd pressure), a real failure
// mode timerfd_create(2) documents.
const createRetries = 5

// New creates a monotonic-clock timerfd, retrying transient resource
// exhaustion with an exponential backoff before surfacing the error.
func New() (Timer, error) {
	var fd int
	var err error
	for attempt := 0; attempt < createRetries; attempt++ {
		fd, err = unix.TimerfdCreate(unix.CLOCK_MONOTONIC, 0)
		if err == nil {
			return &linuxTimer{fd: fd}, nil
		}
		if err != unix.EMFILE && err != unix.ENFILE {
			return nil, fmt.Errorf("kerneltimer: timerfd_create: %w", err)
		}
		time.Sleep(chrono.StandardExponentialBackoff(attempt, createRetries, time.Millisecond, 200*time.Millisecond))
	}
	return nil, fmt.Errorf("kerneltimer: timerfd_create: %w", err)
}

func (t *linuxTimer) Arm(absoluteNanos int64) error {
	if t.closed.Load() {
		return ErrClosed
	}
	sec, nsec := splitNanos(absoluteNanos)

	t.mu.Lock()
	defer t.mu.Unlock()
	spec := unix.ItimerSpec{
		Value: unix.Timespec{Sec: sec, Nsec: nsec},
	}
	if err := unix.TimerfdSettime(t.fd, unix.TFD_TIMER_ABSTIME, &spec, nil); err != nil {
		return fmt.Errorf("kerneltimer: timerfd_settime: %w", err)
	}
	return nil
}

// Wait blocks in a raw read(2) on the timerfd. Closing the handle from
// another goroutine while Wait is blocked does not itself interrupt the
// read; callers that need Close to unblock a pending Wait should arm a
// near-immediate deadline before closing.
func (t *linuxTimer) Wait() (uint64, error) {
	var buf [8]byte
	for {
		n, err := unix.Read(t.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if t.closed.Load() {
				return 0, ErrClosed
			}
			return 0, fmt.Errorf("kerneltimer: read: %w", err)
		}
		if n != 8 {
			continue
		}
		return uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 |
			uint64(buf[4])<<32 | uint64(buf[5])<<40 | uint64(buf[6])<<48 | uint64(buf[7])<<56, nil
	}
}

func (t *linuxTimer) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(t.fd)
}
