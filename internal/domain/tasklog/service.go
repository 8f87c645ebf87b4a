package tasklog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"firelog/backend/internal/logger"
	"firelog/backend/internal/utils"
)

// Service is the task/log persistence facade. Every exported operation runs
// against the Store it was built with, scoped by the caller supplied Scope.
type Service struct {
	store Store
	log   logger.Logger
}

func NewService(store Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, log: log}
}

// IsStoreInitialized reports whether the service holds a usable store.
func (s *Service) IsStoreInitialized() bool {
	return s.store != nil && s.store.Initialized()
}

func (s *Service) opLog(op string, scope Scope) logger.Logger {
	return s.log.With(map[string]string{"op": op, "scope": scope.String()})
}

// begin validates the store and the scope. It is called before any store
// access so an uninitialized service never reaches the store.
func (s *Service) begin(op string, scope Scope) (logger.Logger, Scope, error) {
	lg := s.opLog(op, scope)
	if !s.IsStoreInitialized() {
		lg.Errorf("store has not been initialized")
		return lg, scope, fmt.Errorf("%s: %w", op, ErrStoreUninitialized)
	}
	if !scope.IsGlobal() {
		uid := utils.NormalizeID(scope.UserID)
		if err := utils.ValidateDocID(uid); err != nil {
			return lg, scope, fmt.Errorf("%w: user id: %v", ErrBadRequest, err)
		}
		scope = User(uid)
	}
	return lg, scope, nil
}

func normalizeDocID(kind, id string) (string, error) {
	id = utils.NormalizeID(id)
	if err := utils.ValidateDocID(id); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrBadRequest, kind, err)
	}
	return id, nil
}

// UpsertTask writes fields to the task together with a fresh server
// timestamp. With MergeFields, stored fields missing from fields survive.
func (s *Service) UpsertTask(ctx context.Context, scope Scope, taskID string, fields map[string]any, mode WriteMode) error {
	const op = "upsertTask"
	lg, scope, err := s.begin(op, scope)
	if err != nil {
		return err
	}
	if taskID, err = normalizeDocID("task id", taskID); err != nil {
		return err
	}
	if mode != MergeFields && mode != Replace {
		return fmt.Errorf("%w: unknown write mode %v", ErrBadRequest, mode)
	}
	fields, err = utils.NormalizeFieldKeys(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	lg.Debugf("adding/updating task %s (%s): %v", taskID, mode, fields)
	if err := s.store.SetTask(ctx, scope, taskID, fields, mode); err != nil {
		lg.Errorf("error adding/updating task %s: %v", taskID, err)
		return writeError(op, err)
	}
	lg.Infof("task %s added/updated", taskID)
	return nil
}

// ListAllTasks returns every task in the scope, in no particular order.
func (s *Service) ListAllTasks(ctx context.Context, scope Scope) ([]Task, error) {
	const op = "listAllTasks"
	lg, scope, err := s.begin(op, scope)
	if err != nil {
		return nil, err
	}

	tasks, err := s.store.Tasks(ctx, scope)
	if err != nil {
		lg.Errorf("error loading tasks: %v", err)
		return nil, readError(op, err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	lg.Infof("loaded %d tasks", len(tasks))
	return tasks, nil
}

// AppendLog records an empty log entry logID under taskID.
func (s *Service) AppendLog(ctx context.Context, scope Scope, taskID, logID string) error {
	return s.appendLog(ctx, scope, taskID, logID, nil)
}

// AppendLogUnits records a log entry carrying a units factor.
func (s *Service) AppendLogUnits(ctx context.Context, scope Scope, taskID, logID string, units float64) error {
	return s.appendLog(ctx, scope, taskID, logID, &units)
}

func (s *Service) appendLog(ctx context.Context, scope Scope, taskID, logID string, units *float64) error {
	const op = "appendLog"
	lg, scope, err := s.begin(op, scope)
	if err != nil {
		return err
	}
	if taskID, err = normalizeDocID("task id", taskID); err != nil {
		return err
	}
	if logID, err = normalizeDocID("log id", logID); err != nil {
		return err
	}

	if err := s.store.SetLog(ctx, scope, taskID, logID, logFields(units)); err != nil {
		lg.Errorf("error adding log %s for task %s: %v", logID, taskID, err)
		return writeError(op, err)
	}
	lg.Infof("log %s added for task %s", logID, taskID)
	return nil
}

// LoadLogsForTask lists the log entries of one task. A task without logs and
// a task that does not exist both yield an empty slice.
func (s *Service) LoadLogsForTask(ctx context.Context, scope Scope, taskID string) ([]LogEntry, error) {
	const op = "loadLogsForTask"
	lg, scope, err := s.begin(op, scope)
	if err != nil {
		return nil, err
	}
	if taskID, err = normalizeDocID("task id", taskID); err != nil {
		return nil, err
	}

	logs, err := s.store.Logs(ctx, scope, taskID)
	if err != nil {
		lg.Errorf("error loading logs for task %s: %v", taskID, err)
		return nil, readError(op, err)
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	lg.Infof("loaded %d logs for task %s", len(logs), taskID)
	return logs, nil
}

// LoadAllLogs enumerates the tasks holding logs, then reads every task's logs
// concurrently. Any failed read fails the whole call.
func (s *Service) LoadAllLogs(ctx context.Context, scope Scope) ([]LogEntry, error) {
	const op = "loadAllLogs"
	lg, scope, err := s.begin(op, scope)
	if err != nil {
		return nil, err
	}

	taskIDs, err := s.store.LogTaskIDs(ctx, scope)
	if err != nil {
		lg.Errorf("error listing tasks with logs: %v", err)
		return nil, readError(op, err)
	}

	perTask := make([][]LogEntry, len(taskIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, taskID := range taskIDs {
		g.Go(func() error {
			logs, err := s.store.Logs(gctx, scope, taskID)
			if err != nil {
				return fmt.Errorf("task %s: %w", taskID, err)
			}
			perTask[i] = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		lg.Errorf("error loading logs: %v", err)
		return nil, readError(op, err)
	}

	all := []LogEntry{}
	for _, logs := range perTask {
		all = append(all, logs...)
	}
	lg.Infof("loaded %d logs across %d tasks", len(all), len(taskIDs))
	return all, nil
}
