package reconcile

import (
	"sort"
	"strconv"

	"firelog/backend/internal/domain/tasklog"
)

// ReconcileTasks pairs tasks by id. For a pair the side with the later
// UpdatedAt wins and equal timestamps need nothing; unpaired tasks move to
// the side that lacks them.
func ReconcileTasks(online, offline map[string]tasklog.Task) TaskPlan {
	var plan TaskPlan
	for id, off := range offline {
		on, ok := online[id]
		switch {
		case !ok:
			plan.SendUp = append(plan.SendUp, off)
		case off.UpdatedAt.After(on.UpdatedAt):
			plan.SendUp = append(plan.SendUp, off)
		case off.UpdatedAt.Before(on.UpdatedAt):
			plan.Download = append(plan.Download, on)
		}
	}
	for id, on := range online {
		if _, ok := offline[id]; !ok {
			plan.Download = append(plan.Download, on)
		}
	}
	sortTasks(plan.SendUp)
	sortTasks(plan.Download)
	return plan
}

// ReconcileLogs merges the logs of one task. Entries are identified by their
// timestamp; when both sides hold one, the online copy is kept.
func ReconcileLogs(online, offline []tasklog.LogEntry) LogPlan {
	var plan LogPlan
	seen := make(map[string]bool, len(online)+len(offline))
	for _, e := range online {
		if seen[e.Timestamp] {
			continue
		}
		seen[e.Timestamp] = true
		plan.Save = append(plan.Save, e)
	}
	for _, e := range offline {
		if seen[e.Timestamp] {
			continue
		}
		seen[e.Timestamp] = true
		plan.Save = append(plan.Save, e)
		plan.SendUp = append(plan.SendUp, e)
	}
	SortLogs(plan.Save)
	SortLogs(plan.SendUp)
	return plan
}

// SortLogs orders entries by timestamp, numerically when both timestamps are
// integers.
func SortLogs(logs []tasklog.LogEntry) {
	sort.SliceStable(logs, func(i, j int) bool {
		return timestampLess(logs[i].Timestamp, logs[j].Timestamp)
	})
}

func timestampLess(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

func sortTasks(tasks []tasklog.Task) {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
}

func byID(tasks []tasklog.Task) map[string]tasklog.Task {
	out := make(map[string]tasklog.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out
}
