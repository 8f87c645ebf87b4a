// Package offline keeps a per-user copy of tasks and logs on disk so the CLI
// can record work without a connection and reconcile it later.
package offline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"firelog/backend/internal/domain/reconcile"
	"firelog/backend/internal/domain/tasklog"
)

var ErrScopeMismatch = errors.New("offline cache holds a different scope")

type taskRecord struct {
	Fields    map[string]any `yaml:"fields"`
	UpdatedAt time.Time      `yaml:"updated_at"`
}

type logRecord struct {
	Timestamp string   `yaml:"timestamp"`
	Units     *float64 `yaml:"units,omitempty"`
}

type fileFormat struct {
	Scope string                 `yaml:"scope"`
	Tasks map[string]taskRecord  `yaml:"tasks"`
	Logs  map[string][]logRecord `yaml:"logs"`
}

// Cache is a tasklog.Store bound to one scope and backed by a yaml file.
// Every write is flushed to disk before it returns.
type Cache struct {
	path  string
	scope tasklog.Scope
	mem   *tasklog.MemoryStore

	mu sync.Mutex
}

var _ tasklog.Store = (*Cache)(nil)

// Open loads the cache at path. A missing file starts an empty cache; a file
// written for another scope is rejected.
func Open(ctx context.Context, path string, scope tasklog.Scope) (*Cache, error) {
	c := &Cache{path: path, scope: scope, mem: tasklog.NewMemoryStore()}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read offline cache: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode offline cache %s: %w", path, err)
	}
	if f.Scope != "" && f.Scope != scope.String() {
		return nil, fmt.Errorf("%w: %s", ErrScopeMismatch, f.Scope)
	}
	for id, rec := range f.Tasks {
		t := tasklog.Task{ID: id, Fields: rec.Fields, UpdatedAt: rec.UpdatedAt}
		if err := c.mem.PutTask(ctx, scope, t); err != nil {
			return nil, err
		}
	}
	for taskID, logs := range f.Logs {
		for _, l := range logs {
			entry := tasklog.LogEntry{TaskID: taskID, Timestamp: l.Timestamp, Units: l.Units}
			if err := c.mem.SetLog(ctx, scope, taskID, l.Timestamp, entry.Data()); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Cache) Path() string { return c.path }

func (c *Cache) Initialized() bool { return c != nil && c.mem != nil }

func (c *Cache) check(scope tasklog.Scope) error {
	if scope != c.scope {
		return fmt.Errorf("%w: want %s, got %s", ErrScopeMismatch, c.scope, scope)
	}
	return nil
}

func (c *Cache) SetTask(ctx context.Context, scope tasklog.Scope, taskID string, fields map[string]any, mode tasklog.WriteMode) error {
	if err := c.check(scope); err != nil {
		return err
	}
	return c.write(ctx, func() error { return c.mem.SetTask(ctx, scope, taskID, fields, mode) })
}

func (c *Cache) PutTask(ctx context.Context, scope tasklog.Scope, t tasklog.Task) error {
	if err := c.check(scope); err != nil {
		return err
	}
	return c.write(ctx, func() error { return c.mem.PutTask(ctx, scope, t) })
}

func (c *Cache) Tasks(ctx context.Context, scope tasklog.Scope) ([]tasklog.Task, error) {
	if err := c.check(scope); err != nil {
		return nil, err
	}
	return c.mem.Tasks(ctx, scope)
}

func (c *Cache) SetLog(ctx context.Context, scope tasklog.Scope, taskID, logID string, fields map[string]any) error {
	if err := c.check(scope); err != nil {
		return err
	}
	return c.write(ctx, func() error { return c.mem.SetLog(ctx, scope, taskID, logID, fields) })
}

func (c *Cache) Logs(ctx context.Context, scope tasklog.Scope, taskID string) ([]tasklog.LogEntry, error) {
	if err := c.check(scope); err != nil {
		return nil, err
	}
	return c.mem.Logs(ctx, scope, taskID)
}

func (c *Cache) LogTaskIDs(ctx context.Context, scope tasklog.Scope) ([]string, error) {
	if err := c.check(scope); err != nil {
		return nil, err
	}
	return c.mem.LogTaskIDs(ctx, scope)
}

func (c *Cache) write(ctx context.Context, apply func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := apply(); err != nil {
		return err
	}
	return c.flush(ctx)
}

// flush writes the whole cache to a temp file and renames it into place.
func (c *Cache) flush(ctx context.Context) error {
	f := fileFormat{
		Scope: c.scope.String(),
		Tasks: map[string]taskRecord{},
		Logs:  map[string][]logRecord{},
	}

	tasks, err := c.mem.Tasks(ctx, c.scope)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		f.Tasks[t.ID] = taskRecord{Fields: t.Fields, UpdatedAt: t.UpdatedAt}
	}
	taskIDs, err := c.mem.LogTaskIDs(ctx, c.scope)
	if err != nil {
		return err
	}
	for _, id := range taskIDs {
		logs, err := c.mem.Logs(ctx, c.scope, id)
		if err != nil {
			return err
		}
		reconcile.SortLogs(logs)
		recs := make([]logRecord, 0, len(logs))
		for _, l := range logs {
			recs = append(recs, logRecord{Timestamp: l.Timestamp, Units: l.Units})
		}
		f.Logs[id] = recs
	}

	b, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode offline cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write offline cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}
