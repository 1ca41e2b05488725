package tradelog

import (
	"fmt"
	"strings"

	"crypto-signal-engine/internal/ta"
)

// Record is one decoded log line. Accessors never fail: a missing or
// mistyped field reads as its zero value.
type Record map[string]any

func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Str returns the field rendered as text, or def when absent or null.
func (r Record) Str(key, def string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return ta.FormatNumber(&x)
	default:
		return fmt.Sprint(x)
	}
}

func (r Record) Num(key string) *float64 {
	return ta.ToNumber(r[key])
}

// Obj returns a nested object, or an empty Record when the field is not one.
func (r Record) Obj(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return Record(m)
	}
	return Record{}
}

func (r Record) List(key string) []any {
	if l, ok := r[key].([]any); ok {
		return l
	}
	return nil
}

// Strings returns the trimmed, non-empty text items of a list field.
func (r Record) Strings(key string) []string {
	var out []string
	for _, v := range r.List(key) {
		if v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(v))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r Record) Bool(key string) bool {
	switch x := r[key].(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s == "true" || s == "1" || s == "yes"
	default:
		return false
	}
}
