package form

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/relay"
	"github.com/rbright/stonedeck/internal/streamdeck"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func startLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := eventloop.New()
	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

// onLoop runs fn on the loop and waits for it.
func onLoop(t *testing.T, loop *eventloop.Loop, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, loop.Do(ctx, fn))
}

// eventually polls cond on the loop until it holds.
func eventually(t *testing.T, loop *eventloop.Loop, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, func() bool {
		var ok bool
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		if err := loop.Do(ctx, func() { ok = cond() }); err != nil {
			return false
		}
		return ok
	}, waitFor, 5*time.Millisecond, msg)
}

type fakeView struct {
	options  map[string][]Option
	selected map[string]string
	enabled  map[string]bool
	status   string
	statuses []string
	retry    bool

	// onSelect, when set, is invoked from Select the way a real panel echoes
	// a programmatic change back as a user event.
	onSelect func(field, value string)
}

func newFakeView() *fakeView {
	return &fakeView{
		options:  map[string][]Option{},
		selected: map[string]string{},
		enabled:  map[string]bool{},
	}
}

func (v *fakeView) SetOptions(field string, options []Option) {
	v.options[field] = append([]Option(nil), options...)
}

func (v *fakeView) Select(field, value string) {
	v.selected[field] = value
	if v.onSelect != nil {
		v.onSelect(field, value)
	}
}

func (v *fakeView) SetEnabled(field string, enabled bool) { v.enabled[field] = enabled }

func (v *fakeView) SetStatus(message string) {
	v.status = message
	v.statuses = append(v.statuses, message)
}

func (v *fakeView) ShowRetry(visible bool) { v.retry = visible }

// snapshot copies the view on the loop so assertions run on the test goroutine.
func snapshot(t *testing.T, loop *eventloop.Loop, v *fakeView) fakeView {
	t.Helper()
	var out fakeView
	onLoop(t, loop, func() {
		out = fakeView{
			options:  map[string][]Option{},
			selected: map[string]string{},
			enabled:  map[string]bool{},
			status:   v.status,
			statuses: append([]string(nil), v.statuses...),
			retry:    v.retry,
		}
		for field, options := range v.options {
			out.options[field] = append([]Option(nil), options...)
		}
		for field, value := range v.selected {
			out.selected[field] = value
		}
		for field, enabled := range v.enabled {
			out.enabled[field] = enabled
		}
	})
	return out
}

func (v fakeView) values(field string) []string {
	out := make([]string, 0, len(v.options[field]))
	for _, option := range v.options[field] {
		out = append(out, option.Value)
	}
	return out
}

func (v fakeView) firstLabel(field string) string {
	if len(v.options[field]) == 0 {
		return ""
	}
	return v.options[field][0].Label
}

type recordingSender struct {
	mu   sync.Mutex
	sent []streamdeck.Message
}

func (s *recordingSender) Send(msg streamdeck.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) setSettings() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, msg := range s.sent {
		if msg.Event == streamdeck.EventSetSettings {
			out = append(out, msg.Payload.(map[string]any))
		}
	}
	return out
}

func openRelay(sender *recordingSender) *relay.Relay {
	r := relay.New(sender, nil)
	r.Open("ctx")
	return r
}

func settingsEvent(t *testing.T, settings map[string]any) streamdeck.Event {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"settings": settings})
	require.NoError(t, err)
	return streamdeck.Event{Event: streamdeck.EventDidReceiveSettings, Context: "ctx", Payload: payload}
}
