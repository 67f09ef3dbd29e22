package folio

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ShallowMerge overlays fields onto the JSON object in existing. Top-level
// keys in fields are added or replace what is there; nested objects are not
// merged. An empty or null existing document counts as {}.
func ShallowMerge(existing json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	doc := map[string]json.RawMessage{}

	trimmed := bytes.TrimSpace(existing)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if trimmed[0] != '{' {
			return nil, ErrNotObject
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		if doc == nil {
			doc = map[string]json.RawMessage{}
		}
	}

	for field, value := range fields {
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		doc[field] = encoded
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return merged, nil
}

// encodeValue turns a caller value into stored JSON. Raw JSON passes through
// after a validity check.
func encodeValue(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("%w: invalid raw JSON", ErrSerialization)
		}
		return v, nil
	case []byte:
		// []byte would otherwise be base64-encoded by encoding/json
		if !json.Valid(v) {
			return nil, fmt.Errorf("%w: invalid raw JSON", ErrSerialization)
		}
		return json.RawMessage(v), nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return encoded, nil
}

// decodeValue checks a stored value and hands it back as raw JSON.
func decodeValue(value []byte) (json.RawMessage, error) {
	if !json.Valid(value) {
		return nil, ErrSerialization
	}
	return json.RawMessage(append([]byte(nil), value...)), nil
}
