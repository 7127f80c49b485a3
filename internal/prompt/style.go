package prompt

import (
	"bytes"
	"encoding/json"
	"strings"
)

// StyleValue holds the style block, which the remote trend resource stores
// either as a JSON object or as opaque text (sometimes double-encoded).
// The raw text is always kept so the flat-text form round-trips.
type StyleValue struct {
	raw    string
	fields map[string]any
}

// TextStyle returns an opaque text style.
func TextStyle(s string) StyleValue {
	return StyleValue{raw: strings.TrimSpace(s)}
}

// StructuredStyle returns a structured style. The text form is indented JSON.
func StructuredStyle(fields map[string]any) StyleValue {
	if fields == nil {
		return StyleValue{}
	}
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return StyleValue{}
	}
	return StyleValue{raw: string(data), fields: fields}
}

// ParseStyle detects whether s holds a JSON object, unwrapping one level of
// string encoding. Anything else (plain text, arrays, numbers, invalid JSON)
// is kept as text.
func ParseStyle(s string) StyleValue {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return StyleValue{}
	}
	if fields, ok := decodeObject([]byte(raw)); ok {
		return StyleValue{raw: raw, fields: fields}
	}
	return StyleValue{raw: raw}
}

// decodeObject decodes data as a JSON object, or as a JSON string whose
// content is itself a JSON object.
func decodeObject(data []byte) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case string:
		var nested any
		if err := json.Unmarshal([]byte(strings.TrimSpace(t)), &nested); err != nil {
			return nil, false
		}
		if m, ok := nested.(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

// String returns the trimmed text form.
func (v StyleValue) String() string { return v.raw }

// Structured reports whether the style parsed as a JSON object.
func (v StyleValue) Structured() bool { return v.fields != nil }

// Fields returns the structured object, or nil for text styles.
func (v StyleValue) Fields() map[string]any { return v.fields }

// IsZero reports whether the style is empty.
func (v StyleValue) IsZero() bool { return v.raw == "" && v.fields == nil }

// MarshalJSON encodes structured styles as objects and text styles as strings.
func (v StyleValue) MarshalJSON() ([]byte, error) {
	if v.fields != nil {
		return json.Marshal(v.fields)
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON accepts an object, a string (possibly JSON-encoded object),
// or null. Other JSON values are kept as their literal text.
func (v *StyleValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = StyleValue{}
	case data[0] == '{':
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		*v = StructuredStyle(fields)
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ParseStyle(s)
	default:
		*v = TextStyle(string(data))
	}
	return nil
}
