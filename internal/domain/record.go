package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RawRecord is an input dictionary as produced by a feed or the generator,
// before validation and normalization. Values come either from JSON decoding
// (float64, string, bool, json.Number) or from Go code (int, time.Time, ...).
type RawRecord map[string]any

// Has reports whether the field is present and non-nil.
func (r RawRecord) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// String returns the field as a string, or "" when absent.
func (r RawRecord) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the field as a float64.
func (r RawRecord) Float(field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns the field as an int, truncating fractional values.
func (r RawRecord) Int(field string) (int, bool) {
	f, ok := r.Float(field)
	return int(f), ok
}

// Bool returns the field as a bool.
func (r RawRecord) Bool(field string) (bool, bool) {
	switch v := r[field].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	default:
		return false, false
	}
}

// timeLayouts are the accepted string forms of an event time. Layouts
// without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Time returns the field as a time.Time. Strings must match one of
// timeLayouts; anything else reports false.
func (r RawRecord) Time(field string) (time.Time, bool) {
	switch v := r[field].(type) {
	case time.Time:
		return v, true
	case string:
		return ParseTime(v)
	default:
		return time.Time{}, false
	}
}

// ParseTime parses s against the accepted event time layouts.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
