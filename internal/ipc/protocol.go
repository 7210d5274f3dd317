// Package ipc is the unix-socket channel between the running plugin and the CLI.
// It also keeps a second plugin process from starting.
package ipc

import "time"

// CommandStatus asks the plugin for a Response carrying its status fields.
const CommandStatus = "status"

// Request is one line-delimited JSON command.
type Request struct {
	Command string `json:"command"`
}

// Response answers a Request. The status fields are set only for CommandStatus.
type Response struct {
	OK        bool      `json:"ok"`
	State     string    `json:"state,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Controls  int       `json:"controls,omitempty"`
	Panels    int       `json:"panels,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
}
