package reconcile

import "firelog/backend/internal/domain/tasklog"

// TaskPlan lists what a sync must do with tasks. SendUp goes to the remote
// store, Download is saved locally.
type TaskPlan struct {
	SendUp   []tasklog.Task
	Download []tasklog.Task
}

// LogPlan is the outcome for the logs of one task. Save is the union of both
// sides to keep locally; SendUp holds the entries the remote is missing.
type LogPlan struct {
	SendUp []tasklog.LogEntry
	Save   []tasklog.LogEntry
}

// Report summarizes a sync run.
type Report struct {
	TasksSent       int `json:"tasks_sent"`
	TasksDownloaded int `json:"tasks_downloaded"`
	LogsSent        int `json:"logs_sent"`
	LogsSaved       int `json:"logs_saved"`
}
