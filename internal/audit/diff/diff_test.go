package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeOnlyChangedFields(t *testing.T) {
	before := map[string]any{"name": "A", "other": 5}
	patch := map[string]any{"name": "B", "other": 5}

	entries := Compute(before, patch)
	require.Len(t, entries, 1)
	assert.Equal(t, "name", entries[0].Field)
	assert.Equal(t, `"A"`, entries[0].Old)
	assert.Equal(t, `"B"`, entries[0].New)
}

func TestComputeIgnoresFieldsAbsentFromPatch(t *testing.T) {
	before := map[string]any{"name": "A", "city": "Berlin"}
	patch := map[string]any{"name": "B"}

	entries := Compute(before, patch)
	require.Len(t, entries, 1)
	assert.Equal(t, "name", entries[0].Field)
}

func TestComputeEmptyWhenNothingChanged(t *testing.T) {
	before := map[string]any{"name": "A"}
	patch := map[string]any{"name": "A"}

	assert.Empty(t, Compute(before, patch))
}

func TestComputeNewField(t *testing.T) {
	before := map[string]any{}
	patch := map[string]any{"notes": "hello"}

	entries := Compute(before, patch)
	require.Len(t, entries, 1)
	assert.Equal(t, "null", entries[0].Old)
	assert.Equal(t, `"hello"`, entries[0].New)
}

func TestComputeNumericRepresentation(t *testing.T) {
	// A typed int64 from a struct snapshot and a float64 from a decoded JSON
	// patch must compare equal on representation.
	before := map[string]any{"amount": float64(100)}
	patch := map[string]any{"amount": int64(100)}

	assert.Empty(t, Compute(before, patch))
}

func TestComputeSortedByField(t *testing.T) {
	before := map[string]any{"b": 1, "a": 1, "c": 1}
	patch := map[string]any{"b": 2, "a": 2, "c": 2}

	entries := Compute(before, patch)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Field)
	assert.Equal(t, "b", entries[1].Field)
	assert.Equal(t, "c", entries[2].Field)
}

func TestSnapshotUsesJSONTags(t *testing.T) {
	type row struct {
		DisplayName string `json:"display_name"`
		Hidden      string `json:"-"`
	}

	fields, err := Snapshot(row{DisplayName: "x", Hidden: "y"})
	require.NoError(t, err)
	assert.Equal(t, "x", fields["display_name"])
	_, ok := fields["Hidden"]
	assert.False(t, ok)
}
