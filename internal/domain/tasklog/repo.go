package tasklog

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Repo is the Firestore implementation of Store.
type Repo struct {
	fs *firestore.Client
}

var _ Store = (*Repo)(nil)

func NewRepo(fs *firestore.Client) *Repo {
	return &Repo{fs: fs}
}

func (r *Repo) Initialized() bool {
	return r != nil && r.fs != nil
}

// collection returns the named top-level collection for the scope.
func (r *Repo) collection(scope Scope, name string) *firestore.CollectionRef {
	if scope.IsGlobal() {
		return r.fs.Collection(name)
	}
	return r.fs.Collection(UsersCollection).Doc(scope.UserID).Collection(name)
}

func (r *Repo) logsCollection(scope Scope, taskID string) *firestore.CollectionRef {
	return r.collection(scope, TaskLogsCollection).Doc(taskID).Collection(LogsCollection)
}

func (r *Repo) SetTask(ctx context.Context, scope Scope, taskID string, fields map[string]any, mode WriteMode) error {
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data[UpdatedAtField] = firestore.ServerTimestamp

	ref := r.collection(scope, TasksCollection).Doc(taskID)
	var err error
	if mode == Replace {
		_, err = ref.Set(ctx, data)
	} else {
		_, err = ref.Set(ctx, data, firestore.MergeAll)
	}
	return err
}

func (r *Repo) Tasks(ctx context.Context, scope Scope) ([]Task, error) {
	iter := r.collection(scope, TasksCollection).Documents(ctx)
	defer iter.Stop()

	tasks := []Task{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, taskFromDoc(doc.Ref.ID, doc.Data()))
	}
	return tasks, nil
}

func (r *Repo) SetLog(ctx context.Context, scope Scope, taskID, logID string, fields map[string]any) error {
	if fields == nil {
		fields = map[string]any{}
	}
	_, err := r.logsCollection(scope, taskID).Doc(logID).Set(ctx, fields)
	return err
}

func (r *Repo) Logs(ctx context.Context, scope Scope, taskID string) ([]LogEntry, error) {
	iter := r.logsCollection(scope, taskID).Documents(ctx)
	defer iter.Stop()

	logs := []LogEntry{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		logs = append(logs, LogEntry{
			TaskID:    taskID,
			Timestamp: doc.Ref.ID,
			Units:     unitsFromData(doc.Data()),
		})
	}
	return logs, nil
}

// LogTaskIDs uses DocumentRefs rather than Documents: task_logs/{taskId} is
// never written itself, so a plain query would see no documents at all.
func (r *Repo) LogTaskIDs(ctx context.Context, scope Scope) ([]string, error) {
	iter := r.collection(scope, TaskLogsCollection).DocumentRefs(ctx)

	ids := []string{}
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

func taskFromDoc(id string, data map[string]any) Task {
	t := Task{ID: id, Fields: make(map[string]any, len(data))}
	for k, v := range data {
		if k == UpdatedAtField {
			if ts, ok := v.(time.Time); ok {
				t.UpdatedAt = ts
				continue
			}
		}
		t.Fields[k] = v
	}
	return t
}
