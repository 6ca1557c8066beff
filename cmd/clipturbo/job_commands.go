package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipturbo/internal/api"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect or cancel render jobs",
	}
	jobCmd.AddCommand(&cobra.Command{
		Use:   "status <job-id>",
		Short: "Show one render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderJob(job, shouldColorize(out)))
				return nil
			})
		},
	})
	jobCmd.AddCommand(&cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				cancelled, err := client.CancelJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.CancelResponse{Cancelled: cancelled})
				}
				if cancelled {
					fmt.Fprintf(cmd.OutOrStdout(), "Job %s cancelled\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Job %s already finished\n", args[0])
				}
				return nil
			})
		},
	})
	return jobCmd
}

func renderJob(job *api.Job, colorize bool) string {
	title := "Job " + job.ID
	if job.Archived {
		title += " (archived)"
	}
	lines := renderSectionHeader(title, colorize)
	lines = append(lines,
		renderStatusLine("State", stateKind(job.State), fmt.Sprintf("%s, %s", job.State, formatProgress(job.Progress)), colorize),
		renderStatusLine("Template", statusInfo, orDash(job.TemplateID), colorize),
		renderStatusLine("Quality", statusInfo, fmt.Sprintf("%s %dx%d @ %dfps", job.Quality, job.Width, job.Height, job.FrameRate), colorize),
		renderStatusLine("Output", statusInfo, job.OutputFile, colorize),
	)
	if res := job.Result; res != nil {
		lines = append(lines, renderStatusLine("Render time", statusInfo, formatMillis(res.DurationMS), colorize))
		if res.FileSize > 0 {
			lines = append(lines, renderStatusLine("File size", statusInfo, formatBytes(uint64(res.FileSize)), colorize))
		}
		if res.Error != "" {
			lines = append(lines, renderStatusLine("Error", statusError, res.Error, colorize))
		}
	}
	return strings.Join(lines, "\n")
}
