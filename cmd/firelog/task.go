package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"firelog/backend/internal/domain/tasklog"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskUpsertCmd(a), newTaskListCmd(a), newTaskDeleteCmd(a))
	return cmd
}

func newTaskUpsertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upsert [id]",
		Short: "Create or update a task",
		Long: "Create or update a task. Values given with --field are parsed as JSON " +
			"when possible (numbers, booleans, objects) and kept as strings otherwise. " +
			"Without an id a new one is generated.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope()
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetStringArray("field")
			fields, err := parseFields(raw)
			if err != nil {
				return err
			}
			mode := tasklog.MergeFields
			if replace, _ := cmd.Flags().GetBool("replace"); replace {
				mode = tasklog.Replace
			}
			useCache, _ := cmd.Flags().GetBool("offline")

			id := uuid.NewString()
			if len(args) == 1 {
				id = args[0]
			}

			f, err := a.facade(cmd.Context(), scope, useCache)
			if err != nil {
				return err
			}
			if err := f.UpsertTask(cmd.Context(), scope, id, fields, mode); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved task %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringArrayP("field", "f", nil, "field to set as key=value (repeatable)")
	cmd.Flags().Bool("replace", false, "overwrite the whole task instead of merging fields")
	cmd.Flags().Bool("offline", false, "write to the offline cache; run `firelog sync` later")
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
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
			tasks, err := f.ListAllTasks(cmd.Context(), scope)
			if err != nil {
				return err
			}
			if all, _ := cmd.Flags().GetBool("all"); !all {
				tasks = tasklog.PruneDeleted(tasks)
			}
			sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUPDATED\tFIELDS")
			for _, t := range tasks {
				b, _ := json.Marshal(t.Fields)
				updated := "-"
				if !t.UpdatedAt.IsZero() {
					updated = t.UpdatedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, updated, b)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("offline", false, "read the offline cache")
	cmd.Flags().Bool("all", false, "include deleted tasks")
	return cmd
}

// Tasks are soft deleted so the deletion reaches other devices through sync.
func newTaskDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Mark a task as deleted",
		Args:  cobra.ExactArgs(1),
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
			fields := map[string]any{tasklog.DeletedField: true}
			if err := f.UpsertTask(cmd.Context(), scope, args[0], fields, tasklog.MergeFields); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted task %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().Bool("offline", false, "write to the offline cache; run `firelog sync` later")
	return cmd
}

// parseFields turns key=value pairs into a field map.
func parseFields(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q, want key=value", p)
		}
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			fields[k] = parsed
		} else {
			fields[k] = v
		}
	}
	return fields, nil
}
