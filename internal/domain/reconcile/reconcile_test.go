package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firelog/backend/internal/domain/tasklog"
	"firelog/backend/internal/logger"
)

var (
	t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func task(id string, at time.Time) tasklog.Task {
	return tasklog.Task{ID: id, Fields: map[string]any{"name": id}, UpdatedAt: at}
}

func ids(tasks []tasklog.Task) []string {
	out := []string{}
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func stamps(logs []tasklog.LogEntry) []string {
	out := []string{}
	for _, l := range logs {
		out = append(out, l.Timestamp)
	}
	return out
}

func TestReconcileTasks(t *testing.T) {
	online := map[string]tasklog.Task{
		"newer-online":  task("newer-online", t1),
		"newer-offline": task("newer-offline", t0),
		"same":          task("same", t0),
		"online-only":   task("online-only", t0),
	}
	offline := map[string]tasklog.Task{
		"newer-online":  task("newer-online", t0),
		"newer-offline": task("newer-offline", t1),
		"same":          task("same", t0),
		"offline-only":  task("offline-only", t0),
	}

	plan := ReconcileTasks(online, offline)
	assert.Equal(t, []string{"newer-offline", "offline-only"}, ids(plan.SendUp))
	assert.Equal(t, []string{"newer-online", "online-only"}, ids(plan.Download))
	assert.Equal(t, t1, plan.Download[0].UpdatedAt)
}

func TestReconcileTasksEmpty(t *testing.T) {
	plan := ReconcileTasks(nil, nil)
	assert.Empty(t, plan.SendUp)
	assert.Empty(t, plan.Download)
}

func TestReconcileLogs(t *testing.T) {
	two, three := 2.0, 3.0
	online := []tasklog.LogEntry{
		{TaskID: "T", Timestamp: "100"},
		{TaskID: "T", Timestamp: "20", Units: &two},
	}
	offline := []tasklog.LogEntry{
		{TaskID: "T", Timestamp: "20", Units: &three},
		{TaskID: "T", Timestamp: "9"},
		{TaskID: "T", Timestamp: "9"},
		{TaskID: "T", Timestamp: "300"},
	}

	plan := ReconcileLogs(online, offline)
	assert.Equal(t, []string{"9", "300"}, stamps(plan.SendUp))
	assert.Equal(t, []string{"9", "20", "100", "300"}, stamps(plan.Save))
	assert.Equal(t, 2.0, plan.Save[1].UnitsOr(1))
}

func TestSortLogsFallsBackToLexicalOrder(t *testing.T) {
	logs := []tasklog.LogEntry{{Timestamp: "b"}, {Timestamp: "10"}, {Timestamp: "a"}, {Timestamp: "9"}}
	SortLogs(logs)
	assert.Equal(t, "9", logs[0].Timestamp)
	assert.Equal(t, "10", logs[1].Timestamp)
	assert.Equal(t, []string{"a", "b"}, stamps(logs[2:]))
}

func TestSyncer_Run(t *testing.T) {
	ctx := context.Background()
	scope := tasklog.User("u1")
	units := 2.0

	remoteStore := tasklog.NewMemoryStore().WithClock(func() time.Time { return t0 })
	remote := tasklog.NewService(remoteStore, logger.Discard())
	require.NoError(t, remote.UpsertTask(ctx, scope, "T1", map[string]any{"name": "old"}, tasklog.MergeFields))
	require.NoError(t, remote.UpsertTask(ctx, scope, "T2", map[string]any{"name": "server"}, tasklog.MergeFields))
	require.NoError(t, remote.AppendLog(ctx, scope, "T1", "50"))

	local := tasklog.NewMemoryStore()
	require.NoError(t, local.PutTask(ctx, scope, tasklog.Task{ID: "T1", Fields: map[string]any{"name": "new"}, UpdatedAt: t1}))
	require.NoError(t, local.PutTask(ctx, scope, tasklog.Task{ID: "T3", Fields: map[string]any{"name": "offline"}, UpdatedAt: t1}))
	require.NoError(t, local.SetLog(ctx, scope, "T1", "100", map[string]any{tasklog.UnitsField: units}))

	report, err := NewSyncer(remote, local, logger.Discard()).Run(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, &Report{TasksSent: 2, TasksDownloaded: 1, LogsSent: 1, LogsSaved: 2}, report)

	remoteTasks, err := remote.ListAllTasks(ctx, scope)
	require.NoError(t, err)
	got := byID(remoteTasks)
	assert.Equal(t, "new", got["T1"].Fields["name"])
	assert.Contains(t, got, "T3")

	localTasks, err := local.Tasks(ctx, scope)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"T1", "T2", "T3"}, ids(localTasks))

	remoteLogs, err := remote.LoadLogsForTask(ctx, scope, "T1")
	require.NoError(t, err)
	SortLogs(remoteLogs)
	assert.Equal(t, []string{"50", "100"}, stamps(remoteLogs))
	assert.Equal(t, 2.0, remoteLogs[1].UnitsOr(1))

	localLogs, err := local.Logs(ctx, scope, "T1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"50", "100"}, stamps(localLogs))
}

func TestSyncer_SecondRunIsNoop(t *testing.T) {
	ctx := context.Background()
	scope := tasklog.User("u1")
	later := t1.Add(time.Hour)

	remote := tasklog.NewService(tasklog.NewMemoryStore().WithClock(func() time.Time { return later }), logger.Discard())
	local := tasklog.NewMemoryStore()
	require.NoError(t, local.PutTask(ctx, scope, task("T1", t1)))
	require.NoError(t, local.SetLog(ctx, scope, "T1", "100", nil))

	syncer := NewSyncer(remote, local, nil)
	report, err := syncer.Run(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, &Report{TasksSent: 1, LogsSent: 1, LogsSaved: 1}, report)

	localTasks, err := local.Tasks(ctx, scope)
	require.NoError(t, err)
	require.Len(t, localTasks, 1)
	assert.True(t, later.Equal(localTasks[0].UpdatedAt))

	report, err = syncer.Run(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, report.TasksSent)
	assert.Zero(t, report.TasksDownloaded)
	assert.Zero(t, report.LogsSent)
}

type failingRemote struct {
	*tasklog.Service
}

func (failingRemote) UpsertTask(context.Context, tasklog.Scope, string, map[string]any, tasklog.WriteMode) error {
	return errors.New("offline")
}

func TestSyncer_RunFailsOnSendError(t *testing.T) {
	ctx := context.Background()
	local := tasklog.NewMemoryStore()
	require.NoError(t, local.PutTask(ctx, tasklog.Global(), task("T1", t0)))

	remote := failingRemote{tasklog.NewService(tasklog.NewMemoryStore(), logger.Discard())}
	_, err := NewSyncer(remote, local, nil).Run(ctx, tasklog.Global())
	assert.ErrorContains(t, err, "send task T1")
}
