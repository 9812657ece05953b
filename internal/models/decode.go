package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// decodeTolerant unmarshals a backend payload into v regardless of whether
// the backend used camelCase, snake_case or Capitalized keys. Snake keys are
// folded by dropping underscores; encoding/json then matches the remaining
// keys case-insensitively. Keys are lowercased while folding so "spaceId"
// and "space_id" collide. v must not implement json.Unmarshaler itself.
//
// When the same field arrives under several spellings, the camelCase one wins.
func decodeTolerant(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	folded := make(map[string]json.RawMessage, len(raw))
	exact := make(map[string]bool, len(raw))
	for k, val := range raw {
		fk := strings.ToLower(strings.ReplaceAll(k, "_", ""))
		isExact := !strings.Contains(k, "_")
		if _, seen := folded[fk]; seen && exact[fk] && !isExact {
			continue
		}
		folded[fk] = val
		exact[fk] = isExact
	}

	normalized, err := json.Marshal(folded)
	if err != nil {
		return err
	}
	return json.Unmarshal(normalized, v)
}

// firstNonEmpty returns the first non-blank value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
