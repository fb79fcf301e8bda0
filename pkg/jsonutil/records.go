package jsonutil

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// TypeName returns the JSON type of a value decoded by encoding/json.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	}
	return "unknown"
}

// SplitArray parses raw as a JSON array and returns its elements untouched.
// ok is false when raw is not valid JSON or not an array.
func SplitArray(raw string) (elems []json.RawMessage, ok bool) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, false
	}
	if elems == nil {
		elems = []json.RawMessage{}
	}
	return elems, true
}

// JoinArray encodes elements back into a compact JSON array.
func JoinArray(elems []json.RawMessage) (string, error) {
	if elems == nil {
		elems = []json.RawMessage{}
	}
	data, err := json.Marshal(elems)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// RecordID returns the canonical form of an element's "id" field.
// Elements that are not objects, or whose id is absent or null, have no id.
func RecordID(elem json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(elem)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var rec struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return "", false
	}
	if len(rec.ID) == 0 || string(rec.ID) == "null" {
		return "", false
	}
	if n, ok := numericID(rec.ID); ok {
		return n, true
	}
	canon, err := Canonicalize(rec.ID)
	if err != nil {
		return "", false
	}
	return string(canon), true
}

// numericID renders a JSON number id in shortest float form, so 1, 1.0 and
// 1e0 compare equal.
func numericID(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return "", false
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", false
	}
	f, err := strconv.ParseFloat(num.String(), 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'g', -1, 64), true
}
