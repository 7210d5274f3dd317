package form

import (
	"context"

	"github.com/rbright/stonedeck/internal/companion"
	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/fsm"
	"github.com/rbright/stonedeck/internal/relay"
)

// EffectCatalog lists playable effects.
type EffectCatalog interface {
	ListSoundEffects(context.Context) ([]companion.SoundEffect, error)
}

// SFXPicker binds the sound-effect dropdown to sfxName/sfxTitle.
type SFXPicker struct {
	lifecycle

	view     View
	settings SettingsStore
	catalog  EffectCatalog

	current  relay.Settings
	effects  []companion.SoundEffect
	applying bool
}

// NewSFXPicker builds an unstarted picker.
func NewSFXPicker(deps Deps, view View, settings SettingsStore, catalog EffectCatalog) *SFXPicker {
	deps = deps.withDefaults()
	return &SFXPicker{
		lifecycle: newLifecycle(deps, "sfx"),
		view:      view,
		settings:  settings,
		catalog:   catalog,
		current:   relay.Settings{},
	}
}

// Start shows the loading placeholder, waits for settings, then loads effects.
func (p *SFXPicker) Start() {
	p.view.SetOptions(FieldSFX, placeholder(labelLoading))
	p.view.SetStatus(statusConnecting)

	p.unsubscribe = p.settings.Subscribe(func(s relay.Settings) {
		if p.closed() {
			return
		}
		p.current = s
		p.updateSelection()
	})
	p.settings.Get(func(s relay.Settings) {
		if p.closed() {
			return
		}
		p.current = s
		p.load()
	})
}

// Retry reloads immediately; it is ignored while a load is running.
func (p *SFXPicker) Retry() {
	p.load()
}

// Close cancels any pending retry and ignores late results.
func (p *SFXPicker) Close() {
	p.close()
}

func (p *SFXPicker) load() {
	if !p.begin() {
		return
	}

	p.view.SetStatus("Loading SFX...")
	p.view.SetEnabled(FieldSFX, false)
	p.view.SetOptions(FieldSFX, placeholder(labelLoading))
	p.view.ShowRetry(false)

	eventloop.Await(p.deps.Loop, p.deps.Context, p.catalog.ListSoundEffects, func(items []companion.SoundEffect, err error) {
		if p.closed() {
			return
		}
		if err != nil {
			p.fire(fsm.EventFail)
			p.view.SetOptions(FieldSFX, placeholder(labelDisconnected))
			p.view.SetStatus(companion.Describe(err, "SFX") + " " + retryHint)
			p.view.ShowRetry(true)
			p.scheduleRetry(p.load)
			return
		}

		p.effects = items
		p.populate()
		p.updateSelection()
		p.view.SetStatus("")
		p.view.SetEnabled(FieldSFX, true)
		p.fire(fsm.EventLoaded)
	})
}

func (p *SFXPicker) populate() {
	options := append(placeholder("Select a sound effect"), make([]Option, 0, len(p.effects))...)
	for _, item := range p.effects {
		options = append(options, Option{Value: item.Name, Label: item.Title()})
	}
	p.view.SetOptions(FieldSFX, options)
}

// updateSelection mirrors settings into the dropdown without re-entering OnSelect.
func (p *SFXPicker) updateSelection() {
	if len(p.effects) == 0 {
		return
	}
	p.applying = true
	p.view.Select(FieldSFX, p.current.String(relay.KeySFXName))
	p.applying = false
}

// OnSelect handles a user pick from the panel.
func (p *SFXPicker) OnSelect(field, value string) {
	if field != FieldSFX || p.applying || len(p.effects) == 0 || p.closed() {
		return
	}

	for _, item := range p.effects {
		if item.Name == value {
			p.current = p.settings.Update(relay.Settings{
				relay.KeySFXName:  item.Name,
				relay.KeySFXTitle: item.Title(),
			})
			return
		}
	}

	p.current = p.settings.Update(relay.Settings{
		relay.KeySFXName:  nil,
		relay.KeySFXTitle: nil,
	})
}
