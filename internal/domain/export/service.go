package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"time"

	"firelog/backend/internal/domain/reconcile"
	"firelog/backend/internal/domain/tasklog"
	"firelog/backend/internal/logger"
)

// URLTTL is how long a signed export URL stays valid.
const URLTTL = 15 * time.Minute

// Source is the read side of the task/log facade.
type Source interface {
	ListAllTasks(ctx context.Context, scope tasklog.Scope) ([]tasklog.Task, error)
	LoadAllLogs(ctx context.Context, scope tasklog.Scope) ([]tasklog.LogEntry, error)
}

type Service struct {
	source Source
	sink   Sink
	signer Signer
	log    logger.Logger
	now    func() time.Time
}

// NewService builds an export service. A nil sink leaves exports disabled;
// a nil signer skips download URLs.
func NewService(source Source, sink Sink, signer Signer, log logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		source: source,
		sink:   sink,
		signer: signer,
		log:    log.With(map[string]string{"component": "export"}),
		now:    time.Now,
	}
}

func (s *Service) Enabled() bool { return s != nil && s.sink != nil }

// ObjectPath returns where the snapshot of scope taken at t is stored.
func ObjectPath(scope tasklog.Scope, t time.Time) string {
	return path.Join("exports", scope.String(), strconv.FormatInt(t.Unix(), 10)+".json")
}

// Export snapshots every task and log of scope into the sink.
func (s *Service) Export(ctx context.Context, scope tasklog.Scope) (*Result, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	lg := s.log.With(map[string]string{"scope": scope.String()})

	tasks, err := s.source.ListAllTasks(ctx, scope)
	if err != nil {
		return nil, err
	}
	logs, err := s.source.LoadAllLogs(ctx, scope)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	reconcile.SortLogs(logs)
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].TaskID < logs[j].TaskID })

	now := s.now().UTC()
	data, err := json.MarshalIndent(Snapshot{
		Scope:      scope.String(),
		ExportedAt: now,
		Tasks:      tasks,
		Logs:       logs,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	obj := ObjectPath(scope, now)
	if err := s.sink.Write(ctx, obj, "application/json", data); err != nil {
		lg.Errorf("error writing export %s: %v", obj, err)
		return nil, err
	}

	res := &Result{Object: obj, Bytes: len(data), Tasks: len(tasks), Logs: len(logs)}
	if s.signer != nil {
		exp := now.Add(URLTTL)
		url, err := s.signer.SignedURL(ctx, obj, exp)
		if err != nil {
			// The object is already written; a missing URL is not fatal.
			lg.Errorf("error signing export url: %v", err)
		} else {
			res.URL = url
			res.URLExpiresAt = &exp
		}
	}
	lg.Infof("exported %d tasks and %d logs to %s", res.Tasks, res.Logs, obj)
	return res, nil
}
