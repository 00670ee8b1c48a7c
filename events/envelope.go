package events

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseEnvelope validates the transport envelope and returns its data field.
// The envelope must be a JSON object whose "data" member is a string.
func ParseEnvelope(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: not valid json", ErrInvalidEnvelope)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return "", fmt.Errorf("%w: expected an object, got %s", ErrInvalidEnvelope, root.Type)
	}
	data := root.Get("data")
	if !data.Exists() {
		return "", fmt.Errorf("%w: missing field 'data'", ErrInvalidEnvelope)
	}
	if data.Type != gjson.String {
		return "", fmt.Errorf("%w: field 'data' must be a string, got %s", ErrInvalidEnvelope, data.Type)
	}
	return data.String(), nil
}
