package tasklog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Collection and field names shared by every Store implementation.
const (
	UsersCollection    = "users"
	TasksCollection    = "tasks"
	TaskLogsCollection = "task_logs"
	LogsCollection     = "logs"

	IDField        = "id"
	UpdatedAtField = "updated_at"
	UnitsField     = "units"
	DeletedField   = "deleted"
)

// Scope selects the namespace a call operates in. The zero value is the
// global namespace; a non-empty UserID prefixes every path with users/{uid}.
type Scope struct {
	UserID string
}

func Global() Scope { return Scope{} }

func User(uid string) Scope { return Scope{UserID: uid} }

func (s Scope) IsGlobal() bool { return s.UserID == "" }

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return UsersCollection + "/" + s.UserID
}

// WriteMode controls how a task write treats fields already stored.
type WriteMode int

const (
	// MergeFields updates only the given fields; nested maps merge recursively.
	MergeFields WriteMode = iota
	// Replace overwrites the whole document.
	Replace
)

func (m WriteMode) String() string {
	switch m {
	case MergeFields:
		return "merge"
	case Replace:
		return "replace"
	default:
		return fmt.Sprintf("WriteMode(%d)", int(m))
	}
}

// ParseWriteMode accepts "merge", "replace" or "" (merge).
func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "merge":
		return MergeFields, nil
	case "replace":
		return Replace, nil
	default:
		return 0, fmt.Errorf("%w: unknown write mode %q", ErrBadRequest, s)
	}
}

// Task is a stored task document. Fields holds the caller supplied data;
// UpdatedAt is assigned by the store on every write.
type Task struct {
	ID        string
	Fields    map[string]any
	UpdatedAt time.Time
}

// Record flattens the task into the plain record handed to callers: the
// stored fields plus the document id. A stored "id" field wins over the
// document id.
func (t Task) Record() map[string]any {
	out := make(map[string]any, len(t.Fields)+2)
	out[IDField] = t.ID
	for k, v := range t.Fields {
		out[k] = v
	}
	if !t.UpdatedAt.IsZero() {
		out[UpdatedAtField] = t.UpdatedAt
	}
	return out
}

// Deleted reports whether the task was soft deleted.
func (t Task) Deleted() bool {
	v, _ := t.Fields[DeletedField].(bool)
	return v
}

// PruneDeleted drops soft deleted tasks, reusing the backing array.
func PruneDeleted(tasks []Task) []Task {
	out := tasks[:0]
	for _, t := range tasks {
		if !t.Deleted() {
			out = append(out, t)
		}
	}
	return out
}

// taskWire is the serialized task. The document id travels apart from the
// fields so a stored "id" field never replaces it.
type taskWire struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	w := taskWire{ID: t.ID, Fields: t.Fields}
	if w.Fields == nil {
		w.Fields = map[string]any{}
	}
	if !t.UpdatedAt.IsZero() {
		w.UpdatedAt = &t.UpdatedAt
	}
	return json.Marshal(w)
}

func (t *Task) UnmarshalJSON(b []byte) error {
	var w taskWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Fields == nil {
		w.Fields = map[string]any{}
	}
	*t = Task{ID: w.ID, Fields: w.Fields}
	if w.UpdatedAt != nil {
		t.UpdatedAt = *w.UpdatedAt
	}
	return nil
}

// LogEntry is one log document. Timestamp is the log document id, by
// convention unix seconds. Units is only set when the entry carries a factor.
type LogEntry struct {
	TaskID    string   `json:"task_id" yaml:"task_id"`
	Timestamp string   `json:"timestamp" yaml:"timestamp"`
	Units     *float64 `json:"units,omitempty" yaml:"units,omitempty"`
}

// UnitsOr returns the entry's units or def when none were recorded.
func (e LogEntry) UnitsOr(def float64) float64 {
	if e.Units == nil {
		return def
	}
	return *e.Units
}

// Same reports whether two entries address the same log document with the
// same payload.
func (e LogEntry) Same(o LogEntry) bool {
	if e.TaskID != o.TaskID || e.Timestamp != o.Timestamp {
		return false
	}
	if e.Units == nil || o.Units == nil {
		return e.Units == nil && o.Units == nil
	}
	return *e.Units == *o.Units
}

// Data returns the document body stored for the entry.
func (e LogEntry) Data() map[string]any { return logFields(e.Units) }

func logFields(units *float64) map[string]any {
	if units == nil {
		return map[string]any{}
	}
	return map[string]any{UnitsField: *units}
}

func unitsFromData(data map[string]any) *float64 {
	var f float64
	switch v := data[UnitsField].(type) {
	case float64:
		f = v
	case int64:
		f = float64(v)
	case int:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
