package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

type fileConfig struct {
	Companion *fileCompanion `json:"companion"`
	Host      *fileHost      `json:"host"`
	Form      *fileForm      `json:"form"`
	Log       *fileLog       `json:"log"`
}

type fileCompanion struct {
	BaseURL       *string `json:"base_url"`
	TimeoutMS     *int    `json:"timeout_ms"`
	SFXCacheTTLMS *int    `json:"sfx_cache_ttl_ms"`
}

type fileHost struct {
	Address *string `json:"address"`
}

type fileForm struct {
	RetryDelayMS *int `json:"retry_delay_ms"`
}

type fileLog struct {
	Level *string `json:"level"`
}

// Parse reads JSONC content on top of base and validates the result.
// Blank content yields base unchanged.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg := base
	if strings.TrimSpace(content) != "" {
		normalized, err := normalizeJSONC(content)
		if err != nil {
			return Config{}, nil, err
		}

		decoder := json.NewDecoder(strings.NewReader(normalized))
		decoder.DisallowUnknownFields()

		var payload fileConfig
		if err := decoder.Decode(&payload); err != nil {
			return Config{}, nil, withPosition(normalized, err)
		}
		if err := ensureSingleJSONValue(decoder); err != nil {
			return Config{}, nil, withPosition(normalized, err)
		}
		payload.applyTo(&cfg)
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (payload fileConfig) applyTo(cfg *Config) {
	if c := payload.Companion; c != nil {
		if c.BaseURL != nil {
			cfg.Companion.BaseURL = strings.TrimRight(strings.TrimSpace(*c.BaseURL), "/")
		}
		if c.TimeoutMS != nil {
			cfg.Companion.Timeout = millis(*c.TimeoutMS)
		}
		if c.SFXCacheTTLMS != nil {
			cfg.Companion.SFXCacheTTL = millis(*c.SFXCacheTTLMS)
		}
	}
	if payload.Host != nil && payload.Host.Address != nil {
		cfg.Host.Address = strings.TrimSpace(*payload.Host.Address)
	}
	if payload.Form != nil && payload.Form.RetryDelayMS != nil {
		cfg.Form.RetryDelay = millis(*payload.Form.RetryDelayMS)
	}
	if payload.Log != nil && payload.Log.Level != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*payload.Log.Level))
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return err
	}
}

// withPosition prefixes decode errors that carry an offset with line and column.
func withPosition(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}

	line, col := lineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// lineCol converts a 1-based byte offset into a line and column.
func lineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	end := min(int(offset), len(content))

	before := content[:max(end-1, 0)]
	line := strings.Count(before, "\n") + 1
	col := len(before) - strings.LastIndexByte(before, '\n')
	return line, col
}
