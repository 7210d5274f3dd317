// Package config resolves, parses, validates, and defaults stonedeck configuration.
package config

import "time"

// Config is the fully materialized runtime configuration.
type Config struct {
	Companion CompanionConfig
	Host      HostConfig
	Form      FormConfig
	Log       LogConfig
}

// CompanionConfig points at the Summoning Stone local endpoint.
type CompanionConfig struct {
	BaseURL     string
	Timeout     time.Duration
	SFXCacheTTL time.Duration
}

// HostConfig controls how the plugin dials the Stream Deck application.
type HostConfig struct {
	Address string
}

// FormConfig tunes the property-inspector pickers.
type FormConfig struct {
	RetryDelay time.Duration
}

// LogConfig controls the JSONL log.
type LogConfig struct {
	Level string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
