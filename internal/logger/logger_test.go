package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdLogger_SeverityAndLabels(t *testing.T) {
	var buf bytes.Buffer
	l := NewStd(&buf, false)

	l.With(map[string]string{"scope": "global", "op": "upsertTask"}).Infof("task %s saved", "T1")
	l.Errorf("boom")
	l.Debugf("hidden")

	out := buf.String()
	assert.Contains(t, out, "[INFO] task T1 saved op=upsertTask scope=global")
	assert.Contains(t, out, "[ERROR] boom")
	assert.NotContains(t, out, "hidden")
}

func TestStdLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewStd(&buf, true)
	_ = parent.With(map[string]string{"a": "1"})

	parent.Debugf("plain")
	assert.Contains(t, buf.String(), "[DEBUG] plain\n")
}

func TestNew_DefaultsToStd(t *testing.T) {
	l, closeFn, err := New(context.Background(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &StdLogger{}, l)
	assert.NoError(t, closeFn())
}

func TestNew_CloudLoggingNeedsProject(t *testing.T) {
	_, _, err := New(context.Background(), Options{CloudLogging: true})
	assert.Error(t, err)
}
