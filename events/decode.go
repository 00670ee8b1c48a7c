package events

import (
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Decoder turns envelope data into a record.
type Decoder func(data []byte) (Event, error)

// probe checks that data is a JSON object carrying every required path.
func probe(data []byte, required ...string) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid json", ErrDecode)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("%w: expected an object", ErrDecode)
	}
	for _, path := range required {
		if !root.Get(path).Exists() {
			return fmt.Errorf("%w: missing required field '%s'", ErrDecode, path)
		}
	}
	return nil
}

func unmarshal[T any](data []byte, required ...string) (T, error) {
	var v T
	if err := probe(data, required...); err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return v, nil
}

// viewRequired are the paths every view scoped payload must carry.
var viewRequired = []string{"id", "view.id"}

type nativeSetter interface {
	setNative(string)
}

// decodeView decodes a view scoped payload into *T and stamps the native event name.
func decodeView[T any, PT interface {
	*T
	nativeSetter
}](native string, data []byte, required ...string) (PT, error) {
	if err := probe(data, slices.Concat(viewRequired, required)...); err != nil {
		return nil, err
	}
	if id := gjson.GetBytes(data, "id"); id.Type != gjson.String {
		return nil, fmt.Errorf("%w: field 'id' must be a string", ErrDecode)
	}
	if vid := gjson.GetBytes(data, "view.id"); vid.Type != gjson.String {
		return nil, fmt.Errorf("%w: field 'view.id' must be a string", ErrDecode)
	}

	v := PT(new(T))
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	v.setNative(native)
	return v, nil
}
