package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running:      %s\n", yesNo(status.Running))
			fmt.Fprintf(out, "PID:          %d\n", status.PID)
			fmt.Fprintf(out, "Artifact dir: %s\n", status.ArtifactDir)
			fmt.Fprintf(out, "Job database: %s\n", status.JobDBPath)
			fmt.Fprintf(out, "Lock file:    %s\n", status.LockFilePath)
			fmt.Fprintf(out, "Jobs:         %d total (%d processing, %d completed, %d failed)\n",
				status.Jobs.Total, status.Jobs.Processing, status.Jobs.Completed, status.Jobs.Failed)

			if len(status.Dependencies) > 0 {
				fmt.Fprintln(out, "\nDependencies:")
				for _, dep := range status.Dependencies {
					marker := "ok"
					if !dep.Available {
						marker = "missing"
					}
					fmt.Fprintf(out, "  %-14s %-7s %s", dep.Name, marker, dep.Command)
					if dep.Detail != "" {
						fmt.Fprintf(out, " (%s)", dep.Detail)
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
