package editor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// params reads typed values out of a classifier's parameter map.
//
// Every getter takes alias keys in priority order and reports (value, present, error).
// A nil value counts as absent. Numbers may arrive as JSON numbers or numeric strings.
type params struct {
	action Action
	values map[string]any
}

func (p params) lookup(keys ...string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := p.values[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return k, v, true
		}
	}
	return "", nil, false
}

func (p params) invalid(key string, value any, reason string) error {
	if value == nil {
		return fmt.Errorf("%w: %s %s: %s", ErrInvalidParameter, p.action, key, reason)
	}
	return fmt.Errorf("%w: %s %s=%v: %s", ErrInvalidParameter, p.action, key, value, reason)
}

func (p params) number(keys ...string) (float64, bool, error) {
	key, v, ok := p.lookup(keys...)
	if !ok {
		return 0, false, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, true, p.invalid(key, v, "not a number")
	}
	return f, true, nil
}

func (p params) whole(keys ...string) (int, bool, error) {
	key, v, ok := p.lookup(keys...)
	if !ok {
		return 0, false, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, true, p.invalid(key, v, "not a number")
	}
	if f != math.Trunc(f) {
		return 0, true, p.invalid(key, v, "not a whole number")
	}
	return int(f), true, nil
}

// unit reads a value that must lie in [0, 1].
func (p params) unit(keys ...string) (float64, bool, error) {
	f, ok, err := p.number(keys...)
	if err != nil || !ok {
		return f, ok, err
	}
	if f < 0 || f > 1 {
		return 0, true, p.invalid(keys[0], f, "must be between 0 and 1")
	}
	return f, true, nil
}

func (p params) year(keys ...string) (int, bool, error) {
	y, ok, err := p.whole(keys...)
	if err != nil || !ok {
		return y, ok, err
	}
	if y < 1 || y > 9999 {
		return 0, true, p.invalid(keys[0], y, "not a valid year")
	}
	return y, true, nil
}

// durationMS reads a duration given in seconds, or as an "m:ss" string, and returns milliseconds.
func (p params) durationMS(keys ...string) (int, bool, error) {
	key, v, ok := p.lookup(keys...)
	if !ok {
		return 0, false, nil
	}

	if s, isStr := v.(string); isStr && strings.Contains(s, ":") {
		ms, err := parseClock(s)
		if err != nil {
			return 0, true, p.invalid(key, v, err.Error())
		}
		return ms, true, nil
	}

	f, err := toFloat(v)
	if err != nil {
		return 0, true, p.invalid(key, v, "not a number of seconds")
	}
	if f < 0 {
		return 0, true, p.invalid(key, v, "must not be negative")
	}
	return int(math.Round(f * 1000)), true, nil
}

func (p params) flag(keys ...string) (bool, bool, error) {
	key, v, ok := p.lookup(keys...)
	if !ok {
		return false, false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, true, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, true, p.invalid(key, v, "not a boolean")
		}
		return parsed, true, nil
	}
	return false, true, p.invalid(key, v, "not a boolean")
}

func (p params) text(keys ...string) (string, bool, error) {
	key, v, ok := p.lookup(keys...)
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", true, p.invalid(key, v, "not a string")
	}
	return strings.TrimSpace(s), true, nil
}

// list reads a list given as a JSON array of strings or as one comma-separated string.
func (p params) list(keys ...string) ([]string, bool, error) {
	key, v, ok := p.lookup(keys...)
	if !ok {
		return nil, false, nil
	}

	var raw []string
	switch list := v.(type) {
	case string:
		raw = strings.Split(list, ",")
	case []string:
		raw = list
	case []any:
		for _, item := range list {
			s, isStr := item.(string)
			if !isStr {
				return nil, true, p.invalid(key, v, "list entries must be strings")
			}
			raw = append(raw, s)
		}
	default:
		return nil, true, p.invalid(key, v, "not a list of strings")
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true, nil
}

func toFloat(v any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

// parseClock parses "m:ss" or "h:mm:ss" into milliseconds.
func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("expected m:ss")
	}

	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("expected m:ss")
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("expected m:ss")
		}
		total = total*60 + n
	}
	return total * 1000, nil
}
