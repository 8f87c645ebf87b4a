package tasklog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same path and merge semantics
// as Repo. It backs STORE_BACKEND=memory and the package tests.
type MemoryStore struct {
	mu    sync.RWMutex
	now   func() time.Time
	tasks map[Scope]map[string]*memTask
	logs  map[Scope]map[string]map[string]map[string]any
}

type memTask struct {
	fields    map[string]any
	updatedAt time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:   func() time.Time { return time.Now().UTC() },
		tasks: map[Scope]map[string]*memTask{},
		logs:  map[Scope]map[string]map[string]map[string]any{},
	}
}

// WithClock replaces the clock used to stamp updated_at.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *MemoryStore) Initialized() bool { return m != nil }

func (m *MemoryStore) SetTask(ctx context.Context, scope Scope, taskID string, fields map[string]any, mode WriteMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := m.tasks[scope]
	if byID == nil {
		byID = map[string]*memTask{}
		m.tasks[scope] = byID
	}

	t := byID[taskID]
	if t == nil || mode == Replace {
		t = &memTask{fields: map[string]any{}}
		byID[taskID] = t
	}
	mergeInto(t.fields, fields)
	delete(t.fields, UpdatedAtField)
	t.updatedAt = m.now()
	return nil
}

// PutTask stores t as given, keeping its UpdatedAt. It restores snapshots
// and saves tasks downloaded from another store.
func (m *MemoryStore) PutTask(ctx context.Context, scope Scope, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := m.tasks[scope]
	if byID == nil {
		byID = map[string]*memTask{}
		m.tasks[scope] = byID
	}
	fields := map[string]any{}
	mergeInto(fields, t.Fields)
	delete(fields, UpdatedAtField)
	byID[t.ID] = &memTask{fields: fields, updatedAt: t.UpdatedAt}
	return nil
}

func (m *MemoryStore) Tasks(ctx context.Context, scope Scope) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := make([]Task, 0, len(m.tasks[scope]))
	for id, t := range m.tasks[scope] {
		tasks = append(tasks, Task{
			ID:        id,
			Fields:    copyValue(t.fields).(map[string]any),
			UpdatedAt: t.updatedAt,
		})
	}
	return tasks, nil
}

func (m *MemoryStore) SetLog(ctx context.Context, scope Scope, taskID, logID string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byTask := m.logs[scope]
	if byTask == nil {
		byTask = map[string]map[string]map[string]any{}
		m.logs[scope] = byTask
	}
	byLog := byTask[taskID]
	if byLog == nil {
		byLog = map[string]map[string]any{}
		byTask[taskID] = byLog
	}
	doc := map[string]any{}
	mergeInto(doc, fields)
	byLog[logID] = doc
	return nil
}

func (m *MemoryStore) Logs(ctx context.Context, scope Scope, taskID string) ([]LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	byLog := m.logs[scope][taskID]
	logs := make([]LogEntry, 0, len(byLog))
	for id, doc := range byLog {
		logs = append(logs, LogEntry{TaskID: taskID, Timestamp: id, Units: unitsFromData(doc)})
	}
	return logs, nil
}

func (m *MemoryStore) LogTaskIDs(ctx context.Context, scope Scope) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.logs[scope]))
	for id := range m.logs[scope] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// mergeInto applies src onto dst the way a Firestore MergeAll write does:
// nested maps merge key by key, every other value replaces what was there.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = copyValue(v)
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = map[string]any{}
			dst[k] = existing
		}
		mergeInto(existing, sub)
	}
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = copyValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = copyValue(vv)
		}
		return out
	default:
		return v
	}
}
