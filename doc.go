// Package timer is a hierarchical, kernel-timer-backed scheduling core.
//
// A process-wide Manager (Instance) owns a single kernel timer handle and
// a hierarchical Timer Set (internal/bucketset); arming or cancelling a
// Timer mutates that set under a reader/writer lock, and a single drain
// goroutine wakes on every kernel-timer signal to expire due timers and
// dispatch their callbacks, optionally onto an elastic worker pool
// (workerpool.Pool) installed with SetWorkerPool.
//
// Named and Cron build string-keyed and cron-expression-scheduled
// convenience layers on top of the same Manager.
package timer
