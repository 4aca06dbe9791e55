// internal/secretstore/decode.go
//
// Secret payload codec.
//
// A group travels as one JSON object.  Readers of individual keys want
// strings; writers of a whole group (the operator CLI) need the values with
// their original JSON types so a numeric port or a nested object survives a
// read-modify-write.  RawGroup carries the latter, Text converts one value
// to the former.

package secretstore

import (
	"bytes"
	"encoding/json"
)

// RawGroup is a group with each value kept as its JSON encoding.
type RawGroup map[string]json.RawMessage

// StringValue encodes s as a RawGroup value.
func StringValue(s string) json.RawMessage {
	b, _ := json.Marshal(s) // marshalling a string cannot fail
	return b
}

// Text returns v as a string.  JSON strings are unquoted, null becomes "",
// and any other value is returned as its compact JSON text.
func Text(v json.RawMessage) (string, error) {
	switch {
	case len(v) > 0 && v[0] == '"':
		var s string
		err := json.Unmarshal(v, &s)
		return s, err
	case bytes.Equal(v, []byte("null")):
		return "", nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
}

// decodeRaw parses text as a JSON object.  Anything but an object is
// ErrUnsupportedFormat.
func decodeRaw(group, text string) (RawGroup, error) {
	var raw RawGroup
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, groupErr(ErrUnsupportedFormat, group, err)
	}
	if raw == nil {
		return nil, groupErr(ErrUnsupportedFormat, group, nil)
	}
	return raw, nil
}

// decodeGroup parses text into string values via Text.
func decodeGroup(group, text string) (map[string]string, error) {
	raw, err := decodeRaw(group, text)
	if err != nil {
		return nil, err
	}
	return stringValues(group, raw)
}

func stringValues(group string, raw RawGroup) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		s, err := Text(v)
		if err != nil {
			return nil, groupErr(ErrUnsupportedFormat, group, err)
		}
		out[k] = s
	}
	return out, nil
}

func rawFromStrings(values map[string]string) RawGroup {
	raw := make(RawGroup, len(values))
	for k, v := range values {
		raw[k] = StringValue(v)
	}
	return raw
}
