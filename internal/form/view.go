// Package form drives the property-inspector pickers from companion-app lists.
//
// Controllers run on the plugin's event loop. Every entry point (Start,
// OnSelect, Retry, Close, settings callbacks, timer and network continuations)
// is expected to execute there.
package form

import (
	"context"
	"log/slog"
	"time"

	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/relay"
)

// Picker field names shared with the property inspector page.
const (
	FieldSFX      = "sfx"
	FieldCampaign = "campaign"
	FieldScene    = "scene"
)

const (
	labelLoading      = "Loading..."
	labelDisconnected = "Summoning Stone not connected"
	statusConnecting  = "Connecting..."
	retryHint         = "Open the Summoning Stone app to continue. Retrying..."

	// DefaultRetryDelay is how long a failed load waits before trying again.
	DefaultRetryDelay = 5 * time.Second
)

// Option is one dropdown entry. An empty Value is the placeholder.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// View is the rendering surface of a configuration panel.
type View interface {
	SetOptions(field string, options []Option)
	Select(field, value string)
	SetEnabled(field string, enabled bool)
	SetStatus(message string)
	ShowRetry(visible bool)
}

// SettingsStore is the relay surface a picker reads and writes through.
type SettingsStore interface {
	Get(func(relay.Settings))
	Update(relay.Settings) relay.Settings
	Subscribe(func(relay.Settings)) (unsubscribe func())
}

// Controller is what the plugin holds for an open configuration panel.
type Controller interface {
	Start()
	OnSelect(field, value string)
	Retry()
	Close()
}

// Deps are shared by every picker.
type Deps struct {
	Loop       *eventloop.Loop
	Context    context.Context
	RetryDelay time.Duration
	Logger     *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Context == nil {
		d.Context = context.Background()
	}
	if d.RetryDelay <= 0 {
		d.RetryDelay = DefaultRetryDelay
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	return d
}

func placeholder(label string) []Option {
	return []Option{{Value: "", Label: label}}
}
