package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var reservedID = regexp.MustCompile(`^__.*__$`)

var (
	// ErrInvalidTimeFormat is returned when time parsing fails
	ErrInvalidTimeFormat = errors.New("invalid time format")

	ErrEmptyID    = errors.New("id is empty")
	ErrInvalidID  = errors.New("invalid id")
	ErrInvalidKey = errors.New("invalid field key")
)

// NormalizeID trims surrounding whitespace and folds the id to NFC so that
// visually identical ids address the same document.
func NormalizeID(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ValidateDocID reports whether s can be used as a single document id.
// It expects an already normalized id.
func ValidateDocID(s string) error {
	switch {
	case s == "":
		return ErrEmptyID
	case s == "." || s == "..":
		return fmt.Errorf("%w: %q", ErrInvalidID, s)
	case strings.Contains(s, "/"):
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidID, s)
	case reservedID.MatchString(s):
		return fmt.Errorf("%w: %q is reserved", ErrInvalidID, s)
	case len(s) > 1500:
		return fmt.Errorf("%w: longer than 1500 bytes", ErrInvalidID)
	}
	return nil
}

// NormalizeFieldKeys returns a copy of fields with every top-level key
// normalized. Keys that end up empty or collide with another key are rejected.
func NormalizeFieldKeys(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		nk := NormalizeID(k)
		if nk == "" {
			return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
		}
		if _, dup := out[nk]; dup {
			return nil, fmt.Errorf("%w: %q collides after normalization", ErrInvalidKey, k)
		}
		out[nk] = v
	}
	return out, nil
}

// ParseTime parses a time string in RFC3339 or other common formats
func ParseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTimeFormat
}
