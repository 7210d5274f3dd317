package form

import (
	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/fsm"
)

// lifecycle tracks one picker's load state and its pending retry timer.
type lifecycle struct {
	deps  Deps
	name  string
	state fsm.State
	retry *eventloop.Timer

	unsubscribe func()
}

func newLifecycle(deps Deps, name string) lifecycle {
	return lifecycle{deps: deps, name: name, state: fsm.StateIdle}
}

func (l *lifecycle) fire(event fsm.Event) bool {
	next, err := fsm.Transition(l.state, event)
	if err != nil {
		l.deps.Logger.Debug("picker transition rejected", "picker", l.name, "error", err.Error())
		return false
	}
	l.state = next
	return true
}

// begin starts a load unless one is already running or the picker is closed.
func (l *lifecycle) begin() bool {
	if !l.fire(fsm.EventLoad) {
		return false
	}
	l.clearRetry()
	return true
}

func (l *lifecycle) loading() bool {
	return l.state == fsm.StateLoading
}

func (l *lifecycle) closed() bool {
	return l.state == fsm.StateClosed
}

// scheduleRetry arms one retry; a retry that is already pending is kept.
func (l *lifecycle) scheduleRetry(load func()) {
	if l.retry != nil {
		return
	}
	l.deps.Logger.Info("picker load failed; retry scheduled", "picker", l.name, "delay_ms", l.deps.RetryDelay.Milliseconds())
	l.retry = l.deps.Loop.AfterFunc(l.deps.RetryDelay, func() {
		l.retry = nil
		load()
	})
}

func (l *lifecycle) clearRetry() {
	if l.retry == nil {
		return
	}
	l.retry.Stop()
	l.retry = nil
}

func (l *lifecycle) close() {
	l.clearRetry()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.fire(fsm.EventClose)
}
