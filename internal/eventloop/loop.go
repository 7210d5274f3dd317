// Package eventloop runs posted tasks, timers, and async continuations on one goroutine.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when work is submitted to a loop that has exited.
var ErrStopped = errors.New("event loop stopped")

// Loop serializes every posted task onto the goroutine executing Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
}

// New builds an idle loop; call Run to start draining it.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Run drains tasks until ctx is cancelled. Tasks still queued at cancellation are dropped.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, task := range batch {
			if ctx.Err() != nil {
				break
			}
			task()
		}

		if ctx.Err() != nil {
			l.stop()
			return nil
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			l.stop()
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
}

// Post queues fn behind every task already submitted. It never blocks,
// so it is safe to call from inside a running task.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Timer is a pending AfterFunc callback.
type Timer struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

// Stop prevents the callback from running if it has not started yet.
func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
	t.timer.Stop()
}

func (t *Timer) live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.cancelled
}

// AfterFunc posts fn onto the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			// Stop may land after the timer fired but before the task ran.
			if t.live() {
				fn()
			}
		})
	})
	return t
}

// Await runs work on its own goroutine and posts then back onto the loop with the result.
func Await[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), then func(T, error)) {
	go func() {
		value, err := work(ctx)
		l.Post(func() { then(value, err) })
	}()
}
