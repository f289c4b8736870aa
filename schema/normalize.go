// Package schema contains helpers for massaging JSON schemas declared by
// remote tools into the stricter shape the Gemini function-declaration API
// accepts.
package schema

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Normalize returns a copy of the given schema value with every "title" key
// removed from nested mappings, at any depth, including mappings nested in
// sequences. Scalars and values of unrecognized shape are returned unchanged.
// The input is never mutated; the result is rebuilt, so callers may keep
// aliases to the original. Normalize is idempotent.
func Normalize(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			if k == "title" {
				continue
			}
			out[k] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = Normalize(item)
		}
		return out
	default:
		return v
	}
}

// NormalizeMap decodes a JSON schema document and normalizes it.
// The document must hold a JSON object at the top level.
func NormalizeMap(doc []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse schema")
	}
	return Normalize(raw).(map[string]any), nil
}
