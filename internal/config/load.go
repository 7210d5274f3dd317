package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// BaseURLEnv overrides companion.base_url. The host launches the plugin
// without arguments, so this is the only per-launch knob.
const BaseURLEnv = "STONEDECK_BASE_URL"

// Loaded is the resolved config plus where it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the config at explicitPath (or the default location), falls
// back to defaults when the file is absent, and applies BaseURLEnv last.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	default:
		cfg, warnings, err := Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
		}
		loaded.Config = cfg
		loaded.Warnings = warnings
		loaded.Exists = true
	}

	override := strings.TrimSpace(os.Getenv(BaseURLEnv))
	if override == "" {
		return loaded, nil
	}

	loaded.Config.Companion.BaseURL = strings.TrimRight(override, "/")
	warnings, err := Validate(loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("%s: %w", BaseURLEnv, err)
	}
	// File warnings were already reported; keep only what the override adds.
	loaded.Warnings = mergeWarnings(loaded.Warnings, warnings)
	return loaded, nil
}

func mergeWarnings(existing, fresh []Warning) []Warning {
	seen := make(map[string]bool, len(existing))
	for _, w := range existing {
		seen[w.Message] = true
	}
	for _, w := range fresh {
		if !seen[w.Message] {
			existing = append(existing, w)
		}
	}
	return existing
}
