// Package diff computes the field-level diff recorded with every audited
// mutation. Values are normalized through JSON so that typed structs and
// request patch maps compare on representation, not on Go type.
package diff

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is one changed field. Old and New hold the JSON encoding of the
// respective values ("null" for absent/nil).
type Entry struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Snapshot flattens an entity into its JSON field map. Field names follow the
// entity's json tags, matching the patch maps built by the request layer.
func Snapshot(entity any) (map[string]any, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("snapshot entity: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("snapshot entity: %w", err)
	}
	return fields, nil
}

// Compute returns the entries for fields present in patch whose value differs
// from before. Fields absent from patch are not diffed: a patch, not a full
// replace. The result is ordered by field name and may be empty.
func Compute(before map[string]any, patch map[string]any) []Entry {
	fields := make([]string, 0, len(patch))
	for field := range patch {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	entries := make([]Entry, 0, len(fields))
	for _, field := range fields {
		oldEnc := encode(before[field])
		newEnc := encode(patch[field])
		if oldEnc == newEnc {
			continue
		}
		entries = append(entries, Entry{Field: field, Old: oldEnc, New: newEnc})
	}
	return entries
}

func encode(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return string(raw)
}
