package utils

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when a model response holds no JSON object
var ErrNoJSONObject = errors.New("no JSON object found in response")

// ExtractJSONObject returns the outermost {...} span of a model response.
// Models often wrap the object in prose or code fences.
func ExtractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSONObject
	}
	return text[start : end+1], nil
}

// UnmarshalLenient decodes text as JSON, retrying on the extracted object
// when the text is not pure JSON.
func UnmarshalLenient(text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(obj), v)
}

// RawString renders a JSON value as a plain string: strings are unquoted,
// null becomes empty and numbers keep their literal text.
func RawString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}
