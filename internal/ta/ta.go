package ta

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumber coerces v into a finite float. Anything else yields nil.
func ToNumber(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return nil
		}
		f = p
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = p
	case *float64:
		if x == nil {
			return nil
		}
		f = *x
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// FormatNumber renders n so that ToNumber(FormatNumber(n)) == n.
func FormatNumber(n *float64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatFloat(*n, 'g', -1, 64)
}

func Ptr(f float64) *float64 { return &f }

func Value(n *float64) float64 {
	if n == nil {
		return 0
	}
	return *n
}

// Gap is how far v sits below min, floored at zero. Nil in, nil out.
func Gap(min float64, v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Ptr(math.Max(0, min-*v))
}

func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
