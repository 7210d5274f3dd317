package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base, err := url.Parse(cfg.Companion.BaseURL)
	if err != nil || cfg.Companion.BaseURL == "" {
		return nil, fmt.Errorf("companion.base_url %q is not a valid URL", cfg.Companion.BaseURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("companion.base_url must use http or https")
	}
	if base.Host == "" {
		return nil, fmt.Errorf("companion.base_url must include a host")
	}
	if !isLoopback(base.Hostname()) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"companion.base_url host %q is not a loopback address; Summoning Stone normally listens locally", base.Hostname())})
	}

	if cfg.Companion.Timeout <= 0 {
		return nil, fmt.Errorf("companion.timeout_ms must be > 0")
	}
	if cfg.Companion.SFXCacheTTL <= 0 {
		return nil, fmt.Errorf("companion.sfx_cache_ttl_ms must be > 0")
	}
	if cfg.Form.RetryDelay <= 0 {
		return nil, fmt.Errorf("form.retry_delay_ms must be > 0")
	}
	if cfg.Form.RetryDelay < cfg.Companion.Timeout {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"form.retry_delay_ms (%s) is shorter than companion.timeout_ms (%s)",
			cfg.Form.RetryDelay.Round(time.Millisecond), cfg.Companion.Timeout.Round(time.Millisecond))})
	}

	if strings.TrimSpace(cfg.Host.Address) == "" {
		return nil, fmt.Errorf("host.address must not be empty")
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return nil, err
	}

	return warnings, nil
}

// ParseLevel maps log.level onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
