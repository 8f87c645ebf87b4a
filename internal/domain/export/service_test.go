package export

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firelog/backend/internal/domain/tasklog"
	"firelog/backend/internal/logger"
)

type memSink struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemSink() *memSink {
	return &memSink{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memSink) Write(ctx context.Context, objectPath, contentType string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.objects[objectPath] = data
	m.types[objectPath] = contentType
	return nil
}

type fakeSigner struct {
	err error
}

func (f fakeSigner) SignedURL(ctx context.Context, objectPath string, expires time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://signed.example/" + objectPath, nil
}

var fixed = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *tasklog.Service {
	t.Helper()
	ctx := context.Background()
	svc := tasklog.NewService(tasklog.NewMemoryStore(), logger.Discard())
	scope := tasklog.User("u1")
	require.NoError(t, svc.UpsertTask(ctx, scope, "B", map[string]any{"name": "b"}, tasklog.MergeFields))
	require.NoError(t, svc.UpsertTask(ctx, scope, "A", map[string]any{"name": "a"}, tasklog.MergeFields))
	require.NoError(t, svc.AppendLog(ctx, scope, "B", "100"))
	require.NoError(t, svc.AppendLog(ctx, scope, "A", "20"))
	require.NoError(t, svc.AppendLogUnits(ctx, scope, "A", "3", 2))
	return svc
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, "exports/global/1717243200.json", ObjectPath(tasklog.Global(), fixed))
	assert.Equal(t, "exports/users/u1/1717243200.json", ObjectPath(tasklog.User("u1"), fixed))
}

func TestService_Export(t *testing.T) {
	sink := newMemSink()
	svc := NewService(seeded(t), sink, fakeSigner{}, logger.Discard())
	svc.now = func() time.Time { return fixed }

	res, err := svc.Export(context.Background(), tasklog.User("u1"))
	require.NoError(t, err)
	assert.Equal(t, "exports/users/u1/1717243200.json", res.Object)
	assert.Equal(t, 2, res.Tasks)
	assert.Equal(t, 3, res.Logs)
	assert.Equal(t, "https://signed.example/"+res.Object, res.URL)
	require.NotNil(t, res.URLExpiresAt)
	assert.Equal(t, fixed.Add(URLTTL), *res.URLExpiresAt)

	data := sink.objects[res.Object]
	require.NotEmpty(t, data)
	assert.Equal(t, len(data), res.Bytes)
	assert.Equal(t, "application/json", sink.types[res.Object])

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "users/u1", snap.Scope)
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, "A", snap.Tasks[0].ID)
	assert.Equal(t, "a", snap.Tasks[0].Fields["name"])
	got := []string{}
	for _, l := range snap.Logs {
		got = append(got, l.TaskID+"/"+l.Timestamp)
	}
	assert.Equal(t, []string{"A/3", "A/20", "B/100"}, got)
}

func TestService_ExportWithoutSink(t *testing.T) {
	svc := NewService(seeded(t), nil, nil, nil)
	assert.False(t, svc.Enabled())

	_, err := svc.Export(context.Background(), tasklog.User("u1"))
	assert.True(t, IsErrNotConfigured(err))
}

func TestService_ExportSignerFailureStillWrites(t *testing.T) {
	sink := newMemSink()
	svc := NewService(seeded(t), sink, fakeSigner{err: errors.New("no permission")}, logger.Discard())

	res, err := svc.Export(context.Background(), tasklog.User("u1"))
	require.NoError(t, err)
	assert.Empty(t, res.URL)
	assert.Nil(t, res.URLExpiresAt)
	assert.Contains(t, sink.objects, res.Object)
}

func TestService_ExportPropagatesErrors(t *testing.T) {
	sink := newMemSink()
	sink.err = errors.New("bucket missing")
	svc := NewService(seeded(t), sink, nil, logger.Discard())
	_, err := svc.Export(context.Background(), tasklog.User("u1"))
	assert.EqualError(t, err, "bucket missing")

	svc = NewService(tasklog.NewService(nil, logger.Discard()), newMemSink(), nil, logger.Discard())
	_, err = svc.Export(context.Background(), tasklog.User("u1"))
	assert.True(t, tasklog.IsErrStoreUninitialized(err))
}
