// Package plugin owns the per-key instances and routes host events to the
// settings relay, the action handlers and the inspector forms.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/stonedeck/internal/actions"
	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/form"
	"github.com/rbright/stonedeck/internal/ipc"
	"github.com/rbright/stonedeck/internal/relay"
	"github.com/rbright/stonedeck/internal/streamdeck"
)

// Host is the outbound side of the host connection. *streamdeck.Conn satisfies it.
type Host interface {
	relay.Sender
	actions.Surface
	SendToPropertyInspector(action, context string, payload any) error
}

// API is every companion call the plugin makes. *companion.Client satisfies it.
type API interface {
	actions.API
	form.EffectCatalog
	form.SceneCatalog
}

// Options wires a plugin.
type Options struct {
	Host       Host
	API        API
	Loop       *eventloop.Loop
	Context    context.Context
	RetryDelay time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// instance is everything tied to one placed key.
type instance struct {
	control  *actions.Control
	handler  actions.Handler
	settings *relay.Relay
	panel    form.Controller
}

func (inst *instance) settingsChanged(s relay.Settings) {
	if inst.handler.OnSettingsChanged != nil && !inst.control.Closed() {
		inst.handler.OnSettingsChanged(inst.control, s)
	}
}

// Plugin dispatches host events. Handle must run on the loop; Status and the
// ipc handler are safe from any goroutine.
type Plugin struct {
	host       Host
	api        API
	loop       *eventloop.Loop
	ctx        context.Context
	retryDelay time.Duration
	logger     *slog.Logger
	registry   *actions.Registry

	instances map[string]*instance

	mu        sync.Mutex
	status    Status
	startedAt time.Time
}

// Status is a point-in-time summary for `stonedeck status`.
type Status struct {
	Connected bool
	Controls  int
	Panels    int
	StartedAt time.Time
}

// New builds a plugin bound to one host connection.
func New(opts Options) *Plugin {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Plugin{
		host:       opts.Host,
		api:        opts.API,
		loop:       opts.Loop,
		ctx:        opts.Context,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
		registry: actions.NewRegistry(actions.Deps{
			API:     opts.API,
			Loop:    opts.Loop,
			Context: opts.Context,
			Logger:  opts.Logger,
		}),
		instances: map[string]*instance{},
		startedAt: opts.Now(),
	}
}

// Registry exposes the action table.
func (p *Plugin) Registry() *actions.Registry {
	return p.registry
}

// SetConnected records host connection state for status reporting.
func (p *Plugin) SetConnected(connected bool) {
	p.mu.Lock()
	p.status.Connected = connected
	p.mu.Unlock()
}

// Status returns a copy of the current summary.
func (p *Plugin) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.status
	out.StartedAt = p.startedAt
	return out
}

// Handle answers ipc requests from the CLI.
func (p *Plugin) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		st := p.Status()
		state := "disconnected"
		if st.Connected {
			state = "connected"
		}
		return ipc.Response{
			OK:        true,
			State:     state,
			Controls:  st.Controls,
			Panels:    st.Panels,
			StartedAt: st.StartedAt,
		}
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

// HandleEvent dispatches one inbound host event. It runs on the loop.
func (p *Plugin) HandleEvent(ev streamdeck.Event) {
	switch ev.Event {
	case streamdeck.EventWillAppear:
		p.onAppear(ev)
	case streamdeck.EventWillDisappear:
		p.onDisappear(ev)
	case streamdeck.EventDidReceiveSettings:
		if inst := p.lookup(ev); inst != nil {
			inst.settings.Handle(ev)
		}
	case streamdeck.EventKeyDown:
		p.onKeyDown(ev)
	case streamdeck.EventPropertyInspectorDidAppear:
		p.onPanelAppear(ev)
	case streamdeck.EventPropertyInspectorDidDisappear:
		p.closePanel(p.lookup(ev))
	case streamdeck.EventSendToPlugin:
		p.onPanelInput(ev)
	default:
		p.logger.Debug("host event ignored", "event", ev.Event, "context", ev.Context)
	}
	p.refreshCounts()
}

func (p *Plugin) lookup(ev streamdeck.Event) *instance {
	inst, ok := p.instances[ev.Context]
	if !ok {
		p.logger.Debug("event for unknown control", "event", ev.Event, "context", ev.Context)
		return nil
	}
	return inst
}

func (p *Plugin) onAppear(ev streamdeck.Event) {
	handler, ok := p.registry.Lookup(ev.Action)
	if !ok {
		p.logger.Warn("unknown action", "action", ev.Action, "context", ev.Context)
		return
	}

	settings, err := ev.Settings()
	if err != nil {
		p.logger.Warn("appear settings invalid", "context", ev.Context, "error", err.Error())
		settings = map[string]any{}
	}

	inst, exists := p.instances[ev.Context]
	if !exists {
		inst = &instance{
			control:  actions.NewControl(ev.Context, ev.Action, p.host, p.logger),
			handler:  handler,
			settings: relay.New(p.host, p.logger),
		}
		p.instances[ev.Context] = inst

		inst.settings.Open(ev.Context)
		inst.settings.Subscribe(inst.settingsChanged)
	}
	inst.settings.Seed(relay.Settings(settings))

	p.logger.Debug("control appeared", "action", ev.Action, "context", ev.Context)
	if handler.OnAppear != nil {
		handler.OnAppear(inst.control, relay.Settings(settings))
	}
}

func (p *Plugin) onDisappear(ev streamdeck.Event) {
	inst := p.lookup(ev)
	if inst == nil {
		return
	}
	p.closePanel(inst)
	inst.control.Close()
	delete(p.instances, ev.Context)
	p.logger.Debug("control disappeared", "action", ev.Action, "context", ev.Context)
}

func (p *Plugin) onKeyDown(ev streamdeck.Event) {
	inst := p.lookup(ev)
	if inst == nil || inst.handler.OnPress == nil {
		return
	}

	settings, err := ev.Settings()
	if err != nil {
		p.logger.Warn("key settings invalid", "context", ev.Context, "error", err.Error())
		settings = inst.settings.Snapshot()
	}
	p.logger.Info("key pressed", "action", inst.control.Action, "context", ev.Context)
	inst.handler.OnPress(inst.control, relay.Settings(settings))
}

func (p *Plugin) onPanelAppear(ev streamdeck.Event) {
	inst := p.lookup(ev)
	if inst == nil {
		return
	}
	p.closePanel(inst)

	deps := form.Deps{Loop: p.loop, Context: p.ctx, RetryDelay: p.retryDelay, Logger: p.logger}
	view := panelView{plugin: p, action: inst.control.Action, context: ev.Context}
	store := panelStore{Relay: inst.settings, inst: inst}

	switch inst.control.Action {
	case actions.PlaySFX, actions.LegacyPlay:
		inst.panel = form.NewSFXPicker(deps, view, store, p.api)
	case actions.StartScene, actions.LegacySceneSelector:
		inst.panel = form.NewScenePicker(deps, view, store, p.api)
	default:
		return
	}
	inst.panel.Start()
}

func (p *Plugin) closePanel(inst *instance) {
	if inst == nil || inst.panel == nil {
		return
	}
	inst.panel.Close()
	inst.panel = nil
}

func (p *Plugin) onPanelInput(ev streamdeck.Event) {
	inst := p.lookup(ev)
	if inst == nil || inst.panel == nil {
		return
	}

	var input panelInput
	if err := json.Unmarshal(ev.Payload, &input); err != nil {
		p.logger.Warn("inspector payload invalid", "context", ev.Context, "error", err.Error())
		return
	}

	switch input.Event {
	case "select":
		inst.panel.OnSelect(input.Field, input.Value)
	case "retry":
		inst.panel.Retry()
	default:
		p.logger.Debug("inspector event ignored", "event", input.Event, "context", ev.Context)
	}
}

func (p *Plugin) refreshCounts() {
	panels := 0
	for _, inst := range p.instances {
		if inst.panel != nil {
			panels++
		}
	}

	p.mu.Lock()
	p.status.Controls = len(p.instances)
	p.status.Panels = panels
	p.mu.Unlock()
}
