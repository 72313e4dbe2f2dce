package param

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON emits the schema as a JSON object with keys in declaration
// order. encoding/json would otherwise sort map keys, which breaks the
// rendering order contract.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("param: marshal key %q: %w", key, err)
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		fieldJSON, err := json.Marshal(s.fields[key])
		if err != nil {
			return nil, fmt.Errorf("param: marshal field %q: %w", key, err)
		}
		buf.Write(fieldJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a schema object preserving key order via the token
// stream.
func (s *Schema) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("param: decode schema: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("param: schema must be a JSON object, got %v", tok)
	}

	out := Schema{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("param: decode schema key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("param: schema key must be a string, got %v", keyTok)
		}
		var field Field
		if err := dec.Decode(&field); err != nil {
			return fmt.Errorf("param: decode field %q: %w", key, err)
		}
		if err := out.Add(key, field); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("param: decode schema: %w", err)
	}

	*s = out
	return nil
}
