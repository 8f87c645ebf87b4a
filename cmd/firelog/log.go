package main

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"firelog/backend/internal/domain/reconcile"
	"firelog/backend/internal/domain/tasklog"
	"firelog/backend/internal/utils"
)

func newLogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record and list task logs",
	}
	cmd.AddCommand(newLogAppendCmd(a), newLogListCmd(a))
	return cmd
}

func newLogAppendCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append <task-id> [log-id]",
		Short: "Record a log entry for a task",
		Long: "Record a log entry for a task. The log id defaults to the unix time in seconds " +
			"of --at, or of now.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope()
			if err != nil {
				return err
			}
			taskID := args[0]
			at := time.Now()
			if v, _ := cmd.Flags().GetString("at"); v != "" {
				if at, err = utils.ParseTime(v); err != nil {
					return fmt.Errorf("--at %q: %w", v, err)
				}
			}
			logID := strconv.FormatInt(at.Unix(), 10)
			if len(args) == 2 {
				logID = args[1]
			}
			useCache, _ := cmd.Flags().GetBool("offline")

			f, err := a.facade(cmd.Context(), scope, useCache)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("units") {
				units, _ := cmd.Flags().GetFloat64("units")
				err = f.AppendLogUnits(cmd.Context(), scope, taskID, logID, units)
			} else {
				err = f.AppendLog(cmd.Context(), scope, taskID, logID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged %s for task %s\n", logID, taskID)
			return nil
		},
	}
	cmd.Flags().String("at", "", "when the work happened (RFC3339 or 2006-01-02 15:04:05)")
	cmd.Flags().Float64("units", 1, "units factor recorded with the entry")
	cmd.Flags().Bool("offline", false, "write to the offline cache; run `firelog sync` later")
	return cmd
}

func newLogListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [task-id]",
		Short: "List the logs of one task, or of every task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope()
			if err != nil {
				return err
			}
			useCache, _ := cmd.Flags().GetBool("offline")
			f, err := a.facade(cmd.Context(), scope, useCache)
			if err != nil {
				return err
			}

			var logs []tasklog.LogEntry
			if len(args) == 1 {
				logs, err = f.LoadLogsForTask(cmd.Context(), scope, args[0])
			} else {
				logs, err = f.LoadAllLogs(cmd.Context(), scope)
			}
			if err != nil {
				return err
			}
			reconcile.SortLogs(logs)
			sort.SliceStable(logs, func(i, j int) bool { return logs[i].TaskID < logs[j].TaskID })

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK\tLOG\tUNITS\tTIME")
			for _, l := range logs {
				fmt.Fprintf(tw, "%s\t%s\t%g\t%s\n", l.TaskID, l.Timestamp, l.UnitsOr(1), logTime(l.Timestamp))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("offline", false, "read the offline cache")
	return cmd
}

// logTime renders a unix-seconds log id; other ids print as "-".
func logTime(id string) string {
	sec, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return "-"
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
