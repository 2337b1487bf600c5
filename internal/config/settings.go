// Package config holds the configuration record a runner is built from,
// the declarative configuration schema each runner exposes to the host,
// and the YAML data-source files the CLI loads.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/hiverunner/internal/errs"
)

// Settings is the configuration record of one data source: named settings
// as collected by the host. Values arrive from JSON (float64), YAML (int)
// or environment expansion (string), so the getters accept all three.
type Settings map[string]any

// Has reports whether key is set to a non-empty value.
func (s Settings) Has(key string) bool {
	v, ok := s[key]
	if !ok || v == nil {
		return false
	}
	if str, ok := v.(string); ok {
		return str != ""
	}
	return true
}

// String returns the setting as a string, or def when unset.
func (s Settings) String(key, def string) string {
	if !s.Has(key) {
		return def
	}
	switch v := s[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the setting as an int, or def when unset.
func (s Settings) Int(key string, def int) (int, error) {
	if !s.Has(key) {
		return def, nil
	}
	switch v := s[key].(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint16:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("setting %q must be an integer, got %v", key, v))
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("setting %q must be an integer", key), err)
		}
		return n, nil
	default:
		return 0, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("setting %q has unsupported type %T", key, v))
	}
}

// Bool returns the setting as a bool, or def when unset.
func (s Settings) Bool(key string, def bool) bool {
	if !s.Has(key) {
		return def
	}
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

// Clone returns a shallow copy, so callers can fill defaults without
// touching the host's record.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Redacted returns a copy with every key in secret replaced by "--------".
func (s Settings) Redacted(secret []string) Settings {
	out := s.Clone()
	for _, k := range secret {
		if out.Has(k) {
			out[k] = "--------"
		}
	}
	return out
}
