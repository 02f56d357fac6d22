package model

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// getString safely extracts a string value from a map
func getString(m map[string]any, k string) (string, bool) {
	if v, ok := m[k]; ok {
		if s, ok2 := v.(string); ok2 {
			return s, true
		}
	}
	return "", false
}

// getMap safely extracts a nested map from a map.
// Entities are returned as their snapshot.
func getMap(m map[string]any, k string) (map[string]any, bool) {
	switch v := m[k].(type) {
	case map[string]any:
		return v, true
	case *Entity:
		if v != nil {
			return v.Snapshot(), true
		}
	}
	return nil, false
}

// toFloat converts JSON, CBOR and Go numbers. Numeric strings are accepted.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// toInt converts integral numbers; fractions are truncated
func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// parseTime converts timestamp attributes.
// Accepts: RFC3339, numeric milliseconds (number or string), "2006-01-02 15:04:05"
func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if t == "" {
			return time.Time{}, false
		}

		// Try RFC3339 first
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UTC(), true
		}
		if ts, err := time.Parse(time.DateTime, t); err == nil {
			return ts.UTC(), true
		}

		// Try numeric milliseconds
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		return time.Time{}, false
	}

	if ms, ok := toFloat(v); ok {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}
