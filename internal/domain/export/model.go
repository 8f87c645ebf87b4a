package export

import (
	"time"

	"firelog/backend/internal/domain/tasklog"
)

// Snapshot is the JSON document written for one export.
type Snapshot struct {
	Scope      string             `json:"scope"`
	ExportedAt time.Time          `json:"exported_at"`
	Tasks      []tasklog.Task     `json:"tasks"`
	Logs       []tasklog.LogEntry `json:"logs"`
}

type Result struct {
	Object       string     `json:"object"`
	Bytes        int        `json:"bytes"`
	Tasks        int        `json:"tasks"`
	Logs         int        `json:"logs"`
	URL          string     `json:"url,omitempty"`
	URLExpiresAt *time.Time `json:"url_expires_at,omitempty"`
}
