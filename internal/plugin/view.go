package plugin

import (
	"github.com/rbright/stonedeck/internal/form"
	"github.com/rbright/stonedeck/internal/relay"
)

// Messages the plugin pushes to an open property inspector.
const (
	panelOptions = "options"
	panelSelect  = "select"
	panelEnabled = "enabled"
	panelStatus  = "status"
	panelRetry   = "retry"
)

type optionsMessage struct {
	Event   string        `json:"event"`
	Field   string        `json:"field"`
	Options []form.Option `json:"options"`
}

type selectMessage struct {
	Event string `json:"event"`
	Field string `json:"field"`
	Value string `json:"value"`
}

type enabledMessage struct {
	Event   string `json:"event"`
	Field   string `json:"field"`
	Enabled bool   `json:"enabled"`
}

type statusMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

type retryMessage struct {
	Event   string `json:"event"`
	Visible bool   `json:"visible"`
}

// panelView renders a form controller by messaging the inspector page.
type panelView struct {
	plugin  *Plugin
	action  string
	context string
}

func (v panelView) send(payload any) {
	if err := v.plugin.host.SendToPropertyInspector(v.action, v.context, payload); err != nil {
		v.plugin.logger.Warn("property inspector send failed", "context", v.context, "error", err.Error())
	}
}

func (v panelView) SetOptions(field string, options []form.Option) {
	v.send(optionsMessage{Event: panelOptions, Field: field, Options: options})
}

func (v panelView) Select(field, value string) {
	v.send(selectMessage{Event: panelSelect, Field: field, Value: value})
}

func (v panelView) SetEnabled(field string, enabled bool) {
	v.send(enabledMessage{Event: panelEnabled, Field: field, Enabled: enabled})
}

func (v panelView) SetStatus(message string) {
	v.send(statusMessage{Event: panelStatus, Message: message})
}

func (v panelView) ShowRetry(visible bool) {
	v.send(retryMessage{Event: panelRetry, Visible: visible})
}

// panelInput is what the inspector page sends back through sendToPlugin.
type panelInput struct {
	Event string `json:"event"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// panelStore is the key's relay as its panel sees it. The host never echoes a
// plugin's own setSettings back as didReceiveSettings, so panel writes are
// handed to the key's handler here.
type panelStore struct {
	*relay.Relay
	inst *instance
}

func (s panelStore) Update(partial relay.Settings) relay.Settings {
	merged := s.Relay.Update(partial)
	if s.Relay.Context() != "" {
		s.inst.settingsChanged(merged)
	}
	return merged
}
