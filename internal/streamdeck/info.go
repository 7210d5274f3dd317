package streamdeck

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Info is the subset of the host's -info launch argument the plugin logs.
type Info struct {
	Application struct {
		Language string `json:"language"`
		Platform string `json:"platform"`
		Version  string `json:"version"`
	} `json:"application"`
	Plugin struct {
		UUID    string `json:"uuid"`
		Version string `json:"version"`
	} `json:"plugin"`
	Devices []Device `json:"devices"`
}

// Device is one connected controller.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

// ParseInfo decodes the -info JSON. An empty argument yields a zero Info.
func ParseInfo(raw string) (Info, error) {
	var info Info
	if strings.TrimSpace(raw) == "" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return Info{}, fmt.Errorf("decode host info: %w", err)
	}
	return info, nil
}
