// Package relay mirrors one control's settings and keeps them in sync with the host.
package relay

import (
	"log/slog"
	"sync"

	"github.com/rbright/stonedeck/internal/streamdeck"
)

// Sender delivers outbound frames to the host. *streamdeck.Conn satisfies it.
type Sender interface {
	Send(streamdeck.Message) error
}

type lifecycle int

const (
	uninitialized lifecycle = iota
	ready
)

// Relay is the settings mirror for one control context.
//
// Readers that arrive before the host has delivered any settings are queued
// and released exactly once, on first arrival.
type Relay struct {
	sender Sender
	logger *slog.Logger

	mu        sync.Mutex
	context   string
	state     lifecycle
	settings  Settings
	pending   []func(Settings)
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(Settings)
}

// New builds an unopened relay.
func New(sender Sender, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Relay{
		sender:   sender,
		logger:   logger,
		settings: Settings{},
	}
}

// Open binds the relay to a control context and requests its current settings.
func (r *Relay) Open(context string) {
	r.mu.Lock()
	r.context = context
	r.mu.Unlock()

	r.logger.Debug("relay open", "context", context)
	r.send(streamdeck.Message{Event: streamdeck.EventGetSettings, Context: context})
}

// Context returns the bound control context, or "" before Open.
func (r *Relay) Context() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.context
}

// Ready reports whether the host has delivered settings at least once.
func (r *Relay) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == ready
}

// Get hands the current settings to fn. Before the first delivery fn is queued;
// afterwards it runs immediately and a fresh copy is requested from the host.
func (r *Relay) Get(fn func(Settings)) {
	r.mu.Lock()
	if r.state == uninitialized {
		r.pending = append(r.pending, fn)
		r.mu.Unlock()
		return
	}
	snapshot := r.settings.Clone()
	context := r.context
	r.mu.Unlock()

	if context != "" {
		r.send(streamdeck.Message{Event: streamdeck.EventGetSettings, Context: context})
	}
	fn(snapshot)
}

// Snapshot returns a copy of the cached settings without waiting for readiness.
func (r *Relay) Snapshot() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.Clone()
}

// Update merges partial into the cache, sends the merged object to the host and
// returns it. Without an open context nothing changes.
func (r *Relay) Update(partial Settings) Settings {
	r.mu.Lock()
	if r.context == "" {
		current := r.settings.Clone()
		r.mu.Unlock()
		r.logger.Warn("settings update dropped: no control context", "keys", len(partial))
		return current
	}
	r.settings = r.settings.Merge(partial)
	merged := r.settings.Clone()
	context := r.context
	r.mu.Unlock()

	r.send(streamdeck.Message{Event: streamdeck.EventSetSettings, Context: context, Payload: map[string]any(merged)})
	return merged.Clone()
}

// Subscribe registers fn for every host-pushed settings change. The returned
// func removes it; calling it more than once is harmless.
func (r *Relay) Subscribe(fn func(Settings)) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, listener{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, l := range r.listeners {
			if l.id == id {
				r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// Listeners reports how many subscribers are registered.
func (r *Relay) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Seed installs host-supplied initial settings (delivered alongside appear
// events) and releases queued readers. Subscribers are not notified.
func (r *Relay) Seed(settings Settings) {
	r.mu.Lock()
	r.settings = settings.Clone()
	waiting := r.markReady()
	r.mu.Unlock()

	for _, fn := range waiting {
		fn(settings.Clone())
	}
}

// Handle consumes one inbound host event. Only didReceiveSettings is recognized.
func (r *Relay) Handle(ev streamdeck.Event) {
	if ev.Event != streamdeck.EventDidReceiveSettings {
		return
	}

	incoming, err := ev.Settings()
	if err != nil {
		r.logger.Warn("didReceiveSettings payload invalid", "context", ev.Context, "error", err.Error())
		return
	}

	r.mu.Lock()
	r.settings = Settings(incoming).Clone()
	waiting := r.markReady()
	listeners := append([]listener(nil), r.listeners...)
	r.mu.Unlock()

	r.logger.Debug("settings received", "context", ev.Context, "keys", len(incoming))
	for _, fn := range waiting {
		fn(Settings(incoming).Clone())
	}
	for _, l := range listeners {
		l.fn(Settings(incoming).Clone())
	}
}

// markReady flips the lifecycle and drains the pending queue. Callers hold mu.
func (r *Relay) markReady() []func(Settings) {
	if r.state == ready {
		return nil
	}
	r.state = ready
	waiting := r.pending
	r.pending = nil
	return waiting
}

func (r *Relay) send(msg streamdeck.Message) {
	if r.sender == nil {
		return
	}
	if err := r.sender.Send(msg); err != nil {
		r.logger.Warn("relay send failed", "event", msg.Event, "context", msg.Context, "error", err.Error())
	}
}
