package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	// "e" + combining acute folds to the precomposed form.
	assert.Equal(t, "caf\u00e9", NormalizeID("  cafe\u0301 "))
	assert.Equal(t, "T1", NormalizeID("T1"))
}

func TestValidateDocID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr error
	}{
		{"T1", nil},
		{"1718000000", nil},
		{"", ErrEmptyID},
		{".", ErrInvalidID},
		{"..", ErrInvalidID},
		{"a/b", ErrInvalidID},
		{"__name__", ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateDocID(tt.id)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeFieldKeys(t *testing.T) {
	out, err := NormalizeFieldKeys(map[string]any{" name ": "run", "value": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "run", "value": 2}, out)

	_, err = NormalizeFieldKeys(map[string]any{"  ": 1})
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NormalizeFieldKeys(map[string]any{"a": 1, " a": 2})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2024-06-10T08:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), got)

	_, err = ParseTime("yesterday")
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}
