package tasklog

import "context"

// Store is the document-store contract the Service is built on. Paths follow
//
//	[users/{uid}/]tasks/{taskId}
//	[users/{uid}/]task_logs/{taskId}/logs/{logId}
//
// Implementations return raw store errors; the Service classifies them.
type Store interface {
	// Initialized reports whether the underlying connection exists.
	Initialized() bool

	// SetTask writes fields to the task document and stamps UpdatedAtField
	// with the store's clock.
	SetTask(ctx context.Context, scope Scope, taskID string, fields map[string]any, mode WriteMode) error
	Tasks(ctx context.Context, scope Scope) ([]Task, error)

	SetLog(ctx context.Context, scope Scope, taskID, logID string, fields map[string]any) error
	Logs(ctx context.Context, scope Scope, taskID string) ([]LogEntry, error)

	// LogTaskIDs lists the ids under task_logs, including parents that exist
	// only because they hold a logs sub-collection.
	LogTaskIDs(ctx context.Context, scope Scope) ([]string, error)
}
