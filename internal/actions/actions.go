// Package actions holds the per-button handlers: what a control shows and what
// a press does.
package actions

import (
	"context"
	"log/slog"
	"sort"

	"github.com/rbright/stonedeck/internal/companion"
	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/relay"
)

// Action identifiers registered in the plugin manifest.
const (
	Prefix = "com.beau-nouvelle.summoning-stone---ttrpg-sfx-soundboard-music--ambience"

	PlaySFX    = Prefix + ".sfx.play"
	StartScene = Prefix + ".scene.start"
	StopScene  = Prefix + ".scene.stop"

	// Older manifests shipped these identifiers; keys placed with them still fire.
	LegacyPlay          = Prefix + ".increment"
	LegacySceneSelector = "com.beaunouvelle.summoning-stone.scene-selector"
)

// API is the companion-app surface the handlers call.
type API interface {
	FindSoundEffect(ctx context.Context, name string) (companion.SoundEffect, bool, error)
	FetchIcon(ctx context.Context, name string) (string, error)
	ResolveIcon(ctx context.Context, icon string) (string, error)
	PlaySoundEffect(ctx context.Context, name string, opts companion.PlayOptions) error
	StartScene(ctx context.Context, campaignID, sceneID string) error
	StopScene(ctx context.Context) error
}

// Handler is one action's reactions. Nil hooks are skipped.
type Handler struct {
	OnAppear          func(*Control, relay.Settings)
	OnSettingsChanged func(*Control, relay.Settings)
	OnPress           func(*Control, relay.Settings)
}

// Deps are shared by every handler. Handlers run on Loop.
type Deps struct {
	API     API
	Loop    *eventloop.Loop
	Context context.Context
	Logger  *slog.Logger
}

// Registry maps action identifiers to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry registers the built-in handlers.
func NewRegistry(deps Deps) *Registry {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	play := playHandler(deps)
	start := startHandler(deps)

	r := &Registry{handlers: map[string]Handler{}}
	r.Register(PlaySFX, play)
	r.Register(LegacyPlay, play)
	r.Register(StartScene, start)
	r.Register(LegacySceneSelector, start)
	r.Register(StopScene, stopHandler(deps))
	return r
}

// Register binds h to uuid, replacing any earlier binding.
func (r *Registry) Register(uuid string, h Handler) {
	r.handlers[uuid] = h
}

// Lookup returns the handler for uuid.
func (r *Registry) Lookup(uuid string) (Handler, bool) {
	h, ok := r.handlers[uuid]
	return h, ok
}

// UUIDs lists every registered identifier in sorted order.
func (r *Registry) UUIDs() []string {
	out := make([]string, 0, len(r.handlers))
	for uuid := range r.handlers {
		out = append(out, uuid)
	}
	sort.Strings(out)
	return out
}
