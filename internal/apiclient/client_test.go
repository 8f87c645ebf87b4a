package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firelog/backend/internal/config"
	"firelog/backend/internal/domain/export"
	"firelog/backend/internal/domain/reconcile"
	"firelog/backend/internal/domain/tasklog"
	apihttp "firelog/backend/internal/http"
	"firelog/backend/internal/logger"
)

var _ reconcile.Remote = (*Client)(nil)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type staticVerifier map[string]*auth.Token

func (v staticVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := v[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("bad token")
}

func jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// newAPIServer runs the real router over a memory store.
func newAPIServer(t *testing.T) (*httptest.Server, *tasklog.Service) {
	t.Helper()
	tasks := tasklog.NewService(tasklog.NewMemoryStore(), logger.Discard())
	h := apihttp.NewRouter(apihttp.RouterDeps{
		Cfg:      config.Config{StoreBackend: config.BackendMemory},
		Verifier: staticVerifier{"alice": {UID: "alice", Claims: map[string]any{}}},
		Tasks:    tasks,
		Exports:  export.NewService(tasks, nil, nil, nil),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, tasks
}

func TestClient_UpsertTaskRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/global/tasks/T1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "replace", body["mode"])
		assert.Equal(t, map[string]any{"name": "x"}, body["fields"])

		jsonResponse(w, 200, map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", staticToken("tok"))
	require.NoError(t, c.UpsertTask(context.Background(), tasklog.Global(), "T1", map[string]any{"name": "x"}, tasklog.Replace))
}

func TestClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, 400, map[string]any{"message": "bad request: task id: id is empty"})
	}))
	defer srv.Close()

	err := New(srv.URL, staticToken("tok")).AppendLog(context.Background(), tasklog.User("u"), "T1", "1")
	require.Error(t, err)
	assert.True(t, IsStatus(err, 400))
	assert.True(t, tasklog.IsErrBadRequest(err))
	assert.Contains(t, err.Error(), "id is empty")
}

func TestClient_TokenError(t *testing.T) {
	c := New("http://127.0.0.1:0", tokenFunc(func(context.Context) (string, error) {
		return "", errors.New("not signed in")
	}))
	_, err := c.ListAllTasks(context.Background(), tasklog.User("u"))
	assert.EqualError(t, err, "not signed in")
}

type tokenFunc func(context.Context) (string, error)

func (f tokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

func TestClient_AgainstRouter(t *testing.T) {
	ctx := context.Background()
	srv, tasks := newAPIServer(t)
	c := New(srv.URL, staticToken("alice"))
	scope := tasklog.User("alice")

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.UID)

	require.NoError(t, c.UpsertTask(ctx, scope, "T1", map[string]any{"name": "run"}, tasklog.MergeFields))
	require.NoError(t, c.AppendLog(ctx, scope, "T1", "100"))
	require.NoError(t, c.AppendLogUnits(ctx, scope, "T1", "200", 1.5))

	list, err := c.ListAllTasks(ctx, scope)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "T1", list[0].ID)
	assert.Equal(t, "run", list[0].Fields["name"])
	assert.False(t, list[0].UpdatedAt.IsZero())

	logs, err := c.LoadLogsForTask(ctx, scope, "T1")
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	all, err := c.LoadAllLogs(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	stored, err := tasks.LoadLogsForTask(ctx, scope, "T1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, err = c.ListAllTasks(ctx, tasklog.Global())
	assert.True(t, IsStatus(err, http.StatusForbidden))

	_, err = c.Export(ctx, scope)
	assert.True(t, IsStatus(err, http.StatusNotImplemented))
}

func TestClient_SyncOverHTTP(t *testing.T) {
	ctx := context.Background()
	srv, tasks := newAPIServer(t)
	scope := tasklog.User("alice")

	local := tasklog.NewMemoryStore()
	require.NoError(t, tasklog.NewService(local, nil).UpsertTask(ctx, scope, "offline", map[string]any{"name": "x"}, tasklog.MergeFields))
	require.NoError(t, local.SetLog(ctx, scope, "offline", "10", nil))

	report, err := reconcile.NewSyncer(New(srv.URL, staticToken("alice")), local, nil).Run(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksSent)
	assert.Equal(t, 1, report.LogsSent)

	logs, err := tasks.LoadAllLogs(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []tasklog.LogEntry{{TaskID: "offline", Timestamp: "10"}}, logs)
}

func TestClient_TaskIDSurvivesStoredIDField(t *testing.T) {
	ctx := context.Background()
	srv, tasks := newAPIServer(t)
	c := New(srv.URL, staticToken("alice"))
	scope := tasklog.User("alice")

	require.NoError(t, c.UpsertTask(ctx, scope, "T1", map[string]any{"id": "X", "name": "run"}, tasklog.MergeFields))
	require.NoError(t, c.AppendLog(ctx, scope, "T1", "100"))

	list, err := c.ListAllTasks(ctx, scope)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "T1", list[0].ID)
	assert.Equal(t, "X", list[0].Fields["id"])

	local := tasklog.NewMemoryStore()
	report, err := reconcile.NewSyncer(c, local, nil).Run(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksDownloaded)
	assert.Equal(t, 1, report.LogsSaved)

	cached, err := local.Tasks(ctx, scope)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "T1", cached[0].ID)

	_, err = reconcile.NewSyncer(c, local, nil).Run(ctx, scope)
	require.NoError(t, err)
	stored, err := tasks.ListAllTasks(ctx, scope)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "T1", stored[0].ID)
}

func TestClient_SlashInIDIsRejected(t *testing.T) {
	ctx := context.Background()
	srv, tasks := newAPIServer(t)
	c := New(srv.URL, staticToken("alice"))
	scope := tasklog.User("alice")

	err := c.UpsertTask(ctx, scope, "a/b", map[string]any{"name": "x"}, tasklog.MergeFields)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.True(t, tasklog.IsErrBadRequest(err))

	err = c.AppendLog(ctx, scope, "T1", "1/2")
	assert.True(t, tasklog.IsErrBadRequest(err))

	stored, err := tasks.ListAllTasks(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
