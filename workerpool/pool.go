// Package workerpool implements the elastic Worker Pool from spec.md §4.3:
// a FIFO task queue backed by goroutines that grow to demand up to a cap
// and exit only when the pool is stopped, with an at-exit hook queue
// drained once at shutdown.
package workerpool

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Submit once the pool has been stopped.
var ErrStopped = errors.New("workerpool: submit on stopped pool")

// Pool is the elastic worker pool. The zero value is not usable; construct
// with New.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	waiters int
	workers int
	stop    bool

	exitMu sync.Mutex
	exits  []func()

	wg      sync.WaitGroup
	maxIdle int
	logger  *slog.Logger
}

// New constructs a Pool from cfg. Workers are not created eagerly; the
// first worker spawns on the first Submit.
func New(cfg Config) *Pool {
	if cfg == nil {
		cfg = NewConfig()
	}
	p := &Pool{
		maxIdle: cfg.FetchMaxIdle(),
		logger:  cfg.FetchLogger(),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Submit enqueues a void task and returns a future that resolves once it
// has run, or to the error recovered from a panic inside it.
func (p *Pool) Submit(task func()) *Future[struct{}] {
	return SubmitFunc(p, func() struct{} {
		task()
		return struct{}{}
	})
}

// SubmitFunc enqueues a task with a typed return value. It is a
// package-level function rather than a method because Go methods cannot
// carry their own type parameters.
func SubmitFunc[T any](p *Pool, task func() T) *Future[T] {
	future := newFuture[T]()

	run := func() {
		var result T
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = panicError{r}
				}
			}()
			result = task()
		}()
		future.resolve(result, err)
	}

	p.mu.Lock()
	if p.stop {
		p.mu.Unlock()
		future.resolve(*new(T), ErrStopped)
		return future
	}
	p.tasks = append(p.tasks, run)
	// Growth policy (spec.md §4.3): spawn a new worker only when no worker
	// is currently waiting and the pool is below its 2*maxIdle+1 cap.
	if p.waiters == 0 && p.workers < 2*p.maxIdle+1 {
		p.workers++
		p.wg.Add(1)
		go p.work()
	}
	p.mu.Unlock()
	p.cond.Signal()
	return future
}

// AtExit registers a hook to run once, in registration order, during Stop
// before any worker is joined.
func (p *Pool) AtExit(fn func()) {
	p.exitMu.Lock()
	defer p.exitMu.Unlock()
	p.exits = append(p.exits, fn)
}

// Stopped reports whether Stop has been called.
func (p *Pool) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop
}

// Stop marks the pool stopped, runs every at-exit hook, wakes every
// worker, and blocks until all of them have exited. Submissions after Stop
// fail with ErrStopped.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stop = true
	p.mu.Unlock()

	p.exitMu.Lock()
	for _, hook := range p.exits {
		hook()
	}
	p.exits = nil
	p.exitMu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		p.waiters++
		for !p.stop && len(p.tasks) == 0 {
			p.cond.Wait()
		}
		p.waiters--

		if p.stop && len(p.tasks) == 0 {
			p.workers--
			p.mu.Unlock()
			return
		}

		task := p.tasks[0]
		p.tasks = p.tasks[1:]
		p.mu.Unlock()

		p.runTask(task)
	}
}

func (p *Pool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("workerpool: task panicked", "recovered", r)
		}
	}()
	task()
}

// panicError wraps a recovered panic value so SubmitFunc can return it
// through the ordinary error channel of Future.Wait.
type panicError struct {
	value any
}

func (e panicError) Error() string {
	if err, ok := e.value.(error); ok {
		return "workerpool: task panicked: " + err.Error()
	}
	return "workerpool: task panicked"
}
