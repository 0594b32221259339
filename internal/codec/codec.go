// Package codec converts documents to and from the string values held by the
// key-value store.
//
// Older writers JSON-encoded some documents twice, so a stored value may be a
// JSON string whose contents are the real document. Decode unwraps those
// layers before unmarshalling.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"clubsite/internal/apperr"
)

// maxLayers bounds how many string layers Decode will peel off.
const maxLayers = 4

// Encode marshals v and then wraps the result in layers-1 further JSON string
// encodings. layers < 1 is treated as 1.
func Encode(v any, layers int) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	for i := 1; i < layers; i++ {
		if b, err = json.Marshal(string(b)); err != nil {
			return "", fmt.Errorf("encode document: %w", err)
		}
	}
	return string(b), nil
}

// Normalize returns the innermost JSON value of raw. When raw is a JSON
// string that itself holds JSON, the inner value wins; a string whose
// contents are not JSON is returned as that string value.
func Normalize(raw string) (json.RawMessage, error) {
	cur := bytes.TrimSpace([]byte(raw))
	if len(cur) == 0 {
		return nil, &apperr.DecodeError{Err: errors.New("empty value")}
	}
	if !json.Valid(cur) {
		return nil, &apperr.DecodeError{Err: errors.New("value is not valid JSON")}
	}
	for i := 0; i < maxLayers && cur[0] == '"'; i++ {
		var inner string
		if err := json.Unmarshal(cur, &inner); err != nil {
			return nil, &apperr.DecodeError{Err: err}
		}
		next := bytes.TrimSpace([]byte(inner))
		if len(next) == 0 || !json.Valid(next) {
			// A plain string payload; keep it as the JSON string it was.
			break
		}
		cur = next
	}
	return json.RawMessage(cur), nil
}

// Decode unmarshals raw into out after unwrapping string layers.
func Decode(raw string, out any) error {
	msg, err := Normalize(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(msg, out); err != nil {
		return &apperr.DecodeError{Err: err}
	}
	return nil
}
