package streamdeck

import "encoding/json"

// Inbound event names.
const (
	EventWillAppear                    = "willAppear"
	EventWillDisappear                 = "willDisappear"
	EventKeyDown                       = "keyDown"
	EventDidReceiveSettings            = "didReceiveSettings"
	EventPropertyInspectorDidAppear    = "propertyInspectorDidAppear"
	EventPropertyInspectorDidDisappear = "propertyInspectorDidDisappear"
	EventSendToPlugin                  = "sendToPlugin"
)

// Outbound event names.
const (
	EventGetSettings             = "getSettings"
	EventSetSettings             = "setSettings"
	EventSetTitle                = "setTitle"
	EventSetImage                = "setImage"
	EventShowAlert               = "showAlert"
	EventSendToPropertyInspector = "sendToPropertyInspector"
	EventLogMessage              = "logMessage"
)

// Message is one outbound frame. Empty fields are omitted on the wire.
type Message struct {
	Event   string `json:"event"`
	UUID    string `json:"uuid,omitempty"`
	Action  string `json:"action,omitempty"`
	Context string `json:"context,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Event is one inbound frame. Payload is decoded lazily because its shape depends on Event.
type Event struct {
	Event   string          `json:"event"`
	Action  string          `json:"action,omitempty"`
	Context string          `json:"context,omitempty"`
	Device  string          `json:"device,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SettingsPayload is carried by willAppear, keyDown, and didReceiveSettings.
type SettingsPayload struct {
	Settings        map[string]any `json:"settings"`
	Coordinates     *Coordinates   `json:"coordinates,omitempty"`
	IsInMultiAction bool           `json:"isInMultiAction,omitempty"`
}

// Coordinates locate a key on the device grid.
type Coordinates struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// Settings decodes the settings object of a settings-carrying payload.
// A missing or null settings object decodes to an empty map.
func (e Event) Settings() (map[string]any, error) {
	if len(e.Payload) == 0 {
		return map[string]any{}, nil
	}
	var payload SettingsPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, err
	}
	if payload.Settings == nil {
		return map[string]any{}, nil
	}
	return payload.Settings, nil
}

type titlePayload struct {
	Title  string `json:"title"`
	Target int    `json:"target"`
}

type imagePayload struct {
	Image  string `json:"image,omitempty"`
	Target int    `json:"target"`
}

type logPayload struct {
	Message string `json:"message"`
}
