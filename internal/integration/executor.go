package integration

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Executor runs integration tasks on goroutines bounded by a weighted
// semaphore. Submit never blocks the caller; a task waits for a slot on
// its own goroutine. Tasks outlive the request that submitted them (their
// context keeps request values but not its cancellation) and are cancelled
// by Shutdown or by Future.Cancel.
type Executor struct {
	sem  *semaphore.Weighted
	base context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewExecutor returns an executor allowing max concurrent tasks.
func NewExecutor(max int) *Executor {
	if max < 1 {
		max = 1
	}
	base, stop := context.WithCancel(context.Background())
	return &Executor{sem: semaphore.NewWeighted(int64(max)), base: base, stop: stop}
}

// Future is the eventual result of a submitted task.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
}

func newFuture[T any]() *Future[T] { return &Future[T]{done: make(chan struct{})} }

func (f *Future[T]) complete(v T, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the task finishes or ctx is done. Giving up on the
// wait does not cancel the task.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Poll returns the result without blocking; ok is false while pending.
func (f *Future[T]) Poll() (v T, err error, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		return v, nil, false
	}
}

// Cancel asks the task to stop. A finished task is unaffected.
func (f *Future[T]) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}

// Completed returns an already-resolved future.
func Completed[T any](v T, err error) *Future[T] {
	f := newFuture[T]()
	f.complete(v, err)
	return f
}

// Submit schedules fn on e and returns immediately.
func Submit[T any](e *Executor, ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	return SubmitOrAbandon(e, ctx, fn, nil)
}

// SubmitOrAbandon is Submit with a hook for tasks that never start. When
// the executor is closed, or the task is cancelled while waiting for a
// slot, abandon is called with the reason before the future resolves. Its
// context carries the task's values but no cancellation, so it can still
// record the outcome during shutdown.
func SubmitOrAbandon[T any](e *Executor, ctx context.Context, fn func(context.Context) (T, error), abandon func(context.Context, error)) *Future[T] {
	var zero T
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		if abandon != nil {
			abandon(context.WithoutCancel(ctx), ErrExecutorClosed)
		}
		return Completed(zero, ErrExecutorClosed)
	}
	e.wg.Add(1)
	e.mu.Unlock()

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	unlink := context.AfterFunc(e.base, cancel)

	f := newFuture[T]()
	f.cancel = cancel
	go func() {
		defer e.wg.Done()
		defer unlink()
		defer cancel()

		if err := e.sem.Acquire(taskCtx, 1); err != nil {
			if abandon != nil {
				abandon(context.WithoutCancel(taskCtx), err)
			}
			f.complete(zero, err)
			return
		}
		executorInflight.Inc()
		v, err := fn(taskCtx)
		executorInflight.Dec()
		e.sem.Release(1)
		f.complete(v, err)
	}()
	return f
}

// Shutdown stops accepting tasks and waits for running ones until ctx is
// done, after which the remaining tasks are cancelled.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		e.stop()
		return nil
	case <-ctx.Done():
		e.stop()
		<-idle
		return ctx.Err()
	}
}

// Call submits fn and waits for it within ctx. When ctx ends first the task
// keeps running to completion on the executor.
func Call[T any](e *Executor, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	return Submit(e, ctx, fn).Await(ctx)
}
