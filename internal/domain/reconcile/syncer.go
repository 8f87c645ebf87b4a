package reconcile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"firelog/backend/internal/domain/tasklog"
	"firelog/backend/internal/logger"
)

// Remote is the authoritative side of a sync. *tasklog.Service and
// *apiclient.Client both satisfy it.
type Remote interface {
	ListAllTasks(ctx context.Context, scope tasklog.Scope) ([]tasklog.Task, error)
	UpsertTask(ctx context.Context, scope tasklog.Scope, taskID string, fields map[string]any, mode tasklog.WriteMode) error
	AppendLog(ctx context.Context, scope tasklog.Scope, taskID, logID string) error
	AppendLogUnits(ctx context.Context, scope tasklog.Scope, taskID, logID string, units float64) error
	LoadLogsForTask(ctx context.Context, scope tasklog.Scope, taskID string) ([]tasklog.LogEntry, error)
}

// Local is the offline side of a sync.
type Local interface {
	tasklog.Store
	PutTask(ctx context.Context, scope tasklog.Scope, t tasklog.Task) error
}

// maxParallel bounds concurrent remote writes.
const maxParallel = 8

type Syncer struct {
	remote Remote
	local  Local
	log    logger.Logger
}

func NewSyncer(remote Remote, local Local, log logger.Logger) *Syncer {
	if log == nil {
		log = logger.Discard()
	}
	return &Syncer{remote: remote, local: local, log: log.With(map[string]string{"component": "sync"})}
}

// Run reconciles tasks first, then the logs of every task known locally
// after the task phase.
func (s *Syncer) Run(ctx context.Context, scope tasklog.Scope) (*Report, error) {
	lg := s.log.With(map[string]string{"scope": scope.String()})
	report := &Report{}

	online, err := s.remote.ListAllTasks(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list remote tasks: %w", err)
	}
	offline, err := s.local.Tasks(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list local tasks: %w", err)
	}

	plan := ReconcileTasks(byID(online), byID(offline))
	lg.Debugf("task plan: %d to send, %d to download", len(plan.SendUp), len(plan.Download))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for _, t := range plan.SendUp {
		g.Go(func() error {
			if err := s.remote.UpsertTask(gctx, scope, t.ID, t.Fields, tasklog.MergeFields); err != nil {
				return fmt.Errorf("send task %s: %w", t.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.TasksSent = len(plan.SendUp)
	if err := s.refreshSent(ctx, scope, plan.SendUp); err != nil {
		return nil, err
	}

	for _, t := range plan.Download {
		if err := s.local.PutTask(ctx, scope, t); err != nil {
			return nil, fmt.Errorf("save task %s: %w", t.ID, err)
		}
	}
	report.TasksDownloaded = len(plan.Download)

	tasks, err := s.local.Tasks(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list local tasks: %w", err)
	}
	for _, t := range tasks {
		sent, saved, err := s.syncLogs(ctx, scope, t.ID)
		if err != nil {
			return nil, err
		}
		report.LogsSent += sent
		report.LogsSaved += saved
	}

	lg.Infof("sync done: %d tasks sent, %d downloaded, %d logs sent, %d saved",
		report.TasksSent, report.TasksDownloaded, report.LogsSent, report.LogsSaved)
	return report, nil
}

// refreshSent replaces the local copy of every sent task with the remote one,
// so the next run sees the updated_at the remote stamped and does nothing.
func (s *Syncer) refreshSent(ctx context.Context, scope tasklog.Scope, sent []tasklog.Task) error {
	if len(sent) == 0 {
		return nil
	}
	online, err := s.remote.ListAllTasks(ctx, scope)
	if err != nil {
		return fmt.Errorf("list remote tasks: %w", err)
	}
	remote := byID(online)
	for _, t := range sent {
		rt, ok := remote[t.ID]
		if !ok {
			continue
		}
		if err := s.local.PutTask(ctx, scope, rt); err != nil {
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
	}
	return nil
}

func (s *Syncer) syncLogs(ctx context.Context, scope tasklog.Scope, taskID string) (sent, saved int, err error) {
	online, err := s.remote.LoadLogsForTask(ctx, scope, taskID)
	if err != nil {
		return 0, 0, fmt.Errorf("load remote logs for %s: %w", taskID, err)
	}
	offline, err := s.local.Logs(ctx, scope, taskID)
	if err != nil {
		return 0, 0, fmt.Errorf("load local logs for %s: %w", taskID, err)
	}
	plan := ReconcileLogs(online, offline)

	for _, e := range plan.Save {
		if err := s.local.SetLog(ctx, scope, taskID, e.Timestamp, e.Data()); err != nil {
			return 0, 0, fmt.Errorf("save log %s/%s: %w", taskID, e.Timestamp, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for _, e := range plan.SendUp {
		g.Go(func() error {
			var err error
			if e.Units != nil {
				err = s.remote.AppendLogUnits(gctx, scope, taskID, e.Timestamp, *e.Units)
			} else {
				err = s.remote.AppendLog(gctx, scope, taskID, e.Timestamp)
			}
			if err != nil {
				return fmt.Errorf("send log %s/%s: %w", taskID, e.Timestamp, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return len(plan.SendUp), len(plan.Save), nil
}
