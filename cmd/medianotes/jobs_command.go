package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"medianotes/internal/api"
	"medianotes/internal/textutil"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the job registry",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := ctx.client().Jobs(cmd.Context(), statuses...)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					textutil.Truncate(textutil.DisplayTitle(record.JobID), 40),
					record.JobID,
					colorStatus(record.Status, colorize),
					record.Stage,
					record.UpdatedAt.Local().Format(time.DateTime),
					textutil.Truncate(record.ErrorMessage, 40),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Title", "Job ID", "Status", "Stage", "Updated", "Error"}, rows))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (pending, processing, completed, failed)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := ctx.client().Job(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch job: %w", err)
			}
			printJob(cmd, record)
			return nil
		},
	}
}

func printJob(cmd *cobra.Command, record api.JobView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Title:    %s\n", textutil.DisplayTitle(record.JobID))
	fmt.Fprintf(out, "Job ID:   %s\n", record.JobID)
	fmt.Fprintf(out, "Source:   %s (%s)\n", record.Source, record.SourceKind)
	fmt.Fprintf(out, "Status:   %s\n", record.Status)
	if record.Stage != "" {
		fmt.Fprintf(out, "Stage:    %s\n", record.Stage)
	}
	if record.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", record.ErrorMessage)
	}
	fmt.Fprintf(out, "Created:  %s\n", record.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Updated:  %s\n", record.UpdatedAt.Local().Format(time.DateTime))
}
