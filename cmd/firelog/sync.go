package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"firelog/backend/internal/domain/reconcile"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the offline cache with the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope()
			if err != nil {
				return err
			}
			cache, err := a.cache(cmd.Context(), scope)
			if err != nil {
				return err
			}
			report, err := reconcile.NewSyncer(a.remote(), cache, a.log).Run(cmd.Context(), scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Tasks: %d sent, %d downloaded\nLogs: %d sent, %d saved\n",
				report.TasksSent, report.TasksDownloaded, report.LogsSent, report.LogsSaved)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of every task and log to Cloud Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope()
			if err != nil {
				return err
			}
			res, err := a.remote().Export(cmd.Context(), scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Exported %d tasks and %d logs to %s\n", res.Tasks, res.Logs, res.Object)
			if res.URL != "" {
				fmt.Fprintf(a.out, "Download: %s\n", res.URL)
			}
			return nil
		},
	}
}
