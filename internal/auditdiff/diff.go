// Package auditdiff computes field-level changes between two JSON snapshots of
// the same entity.
//
// Only top-level fields are compared. Nested objects and arrays are treated as
// opaque values: they differ when their compact serialized forms differ.
package auditdiff

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ErrMalformedSnapshot is returned alongside a raw fallback change when either
// snapshot is not a JSON object. It is informational; the fallback is usable.
var ErrMalformedSnapshot = errors.New("audit snapshot is not a JSON object")

// RawField names the synthetic change emitted for malformed snapshots.
const RawField = "raw"

var jsonNull = json.RawMessage("null")

// FieldChange is one differing field. Values are compact JSON; absent fields are null.
type FieldChange struct {
	Field    string          `json:"field"`
	OldValue json.RawMessage `json:"oldValue"`
	NewValue json.RawMessage `json:"newValue"`
}

type snapshot struct {
	order  []string
	values map[string]string
}

// Compute returns the changed fields between before and after, in first-seen
// order: fields of before first, then fields only present in after.
// A nil, empty or "null" snapshot counts as an object with no fields.
func Compute(before, after *string) ([]FieldChange, error) {
	prev, ok := parseSnapshot(before)
	if !ok {
		return rawChange(before, after), ErrMalformedSnapshot
	}
	next, ok := parseSnapshot(after)
	if !ok {
		return rawChange(before, after), ErrMalformedSnapshot
	}

	fields := make([]string, 0, len(prev.order)+len(next.order))
	seen := make(map[string]struct{}, cap(fields))
	for _, list := range [][]string{prev.order, next.order} {
		for _, field := range list {
			if _, dup := seen[field]; dup {
				continue
			}
			seen[field] = struct{}{}
			fields = append(fields, field)
		}
	}

	changes := make([]FieldChange, 0)
	for _, field := range fields {
		oldValue := prev.value(field)
		newValue := next.value(field)
		if oldValue == newValue {
			continue
		}
		changes = append(changes, FieldChange{
			Field:    field,
			OldValue: json.RawMessage(oldValue),
			NewValue: json.RawMessage(newValue),
		})
	}
	return changes, nil
}

func parseSnapshot(raw *string) (snapshot, bool) {
	if raw == nil {
		return snapshot{}, true
	}
	text := strings.TrimSpace(*raw)
	if text == "" || text == "null" {
		return snapshot{}, true
	}
	if !gjson.Valid(text) {
		return snapshot{}, false
	}
	doc := gjson.Parse(text)
	if !doc.IsObject() {
		return snapshot{}, false
	}

	snap := snapshot{values: make(map[string]string)}
	doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if _, dup := snap.values[name]; !dup {
			snap.order = append(snap.order, name)
		}
		snap.values[name] = string(pretty.Ugly([]byte(value.Raw)))
		return true
	})
	return snap, true
}

func (s snapshot) value(field string) string {
	if v, ok := s.values[field]; ok {
		return v
	}
	return string(jsonNull)
}

func rawChange(before, after *string) []FieldChange {
	return []FieldChange{{Field: RawField, OldValue: quoted(before), NewValue: quoted(after)}}
}

func quoted(s *string) json.RawMessage {
	if s == nil {
		return jsonNull
	}
	b, err := json.Marshal(*s)
	if err != nil {
		return jsonNull
	}
	return b
}
