package tasklog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_String(t *testing.T) {
	assert.Equal(t, "global", Global().String())
	assert.Equal(t, "users/u1", User("u1").String())
	assert.True(t, User("").IsGlobal())
}

func TestParseWriteMode(t *testing.T) {
	for in, want := range map[string]WriteMode{"": MergeFields, "merge": MergeFields, " Replace ": Replace} {
		got, err := ParseWriteMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseWriteMode("upsert")
	assert.True(t, IsErrBadRequest(err))
}

func TestTask_RecordPrefersStoredID(t *testing.T) {
	rec := Task{ID: "doc", Fields: map[string]any{"id": "custom", "name": "x"}}.Record()
	assert.Equal(t, "custom", rec[IDField])
	assert.NotContains(t, rec, UpdatedAtField)
}

func TestTask_JSON(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := Task{ID: "T1", Fields: map[string]any{"name": "run"}, UpdatedAt: ts}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"T1","fields":{"name":"run"},"updated_at":"2024-06-01T12:00:00Z"}`, string(b))

	var out Task
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "T1", out.ID)
	assert.True(t, ts.Equal(out.UpdatedAt))
	assert.Equal(t, map[string]any{"name": "run"}, out.Fields)
}

func TestTask_JSONKeepsDocumentID(t *testing.T) {
	in := Task{ID: "T1", Fields: map[string]any{"id": "X", "name": "run"}}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"T1","fields":{"id":"X","name":"run"}}`, string(b))

	var out Task
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "T1", out.ID)
	assert.Equal(t, "X", out.Fields["id"])
	assert.True(t, out.UpdatedAt.IsZero())
}

func TestPruneDeleted(t *testing.T) {
	tasks := []Task{
		{ID: "a", Fields: map[string]any{DeletedField: true}},
		{ID: "b", Fields: map[string]any{DeletedField: false}},
		{ID: "c", Fields: map[string]any{DeletedField: "yes"}},
		{ID: "d"},
	}
	got := PruneDeleted(tasks)
	ids := []string{}
	for _, t := range got {
		ids = append(ids, t.ID)
	}
	assert.Equal(t, []string{"b", "c", "d"}, ids)
}

func TestLogEntry_Units(t *testing.T) {
	two := 2.0
	assert.Equal(t, 1.0, LogEntry{}.UnitsOr(1))
	assert.Equal(t, 2.0, LogEntry{Units: &two}.UnitsOr(1))

	assert.Equal(t, 3.0, *unitsFromData(map[string]any{UnitsField: int64(3)}))
	assert.Equal(t, 1.5, *unitsFromData(map[string]any{UnitsField: "1.5"}))
	assert.Nil(t, unitsFromData(map[string]any{}))
	assert.Nil(t, unitsFromData(map[string]any{UnitsField: "many"}))
}

func TestLogEntry_Same(t *testing.T) {
	one, other := 1.0, 1.0
	assert.True(t, LogEntry{TaskID: "a", Timestamp: "1"}.Same(LogEntry{TaskID: "a", Timestamp: "1"}))
	assert.True(t, LogEntry{TaskID: "a", Timestamp: "1", Units: &one}.Same(LogEntry{TaskID: "a", Timestamp: "1", Units: &other}))
	assert.False(t, LogEntry{TaskID: "a", Timestamp: "1", Units: &one}.Same(LogEntry{TaskID: "a", Timestamp: "1"}))
	assert.False(t, LogEntry{TaskID: "a", Timestamp: "1"}.Same(LogEntry{TaskID: "b", Timestamp: "1"}))
}
