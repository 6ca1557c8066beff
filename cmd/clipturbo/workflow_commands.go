package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipturbo/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [workflow-id]",
		Short: "Show daemon status, or one workflow",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					wf, err := client.Workflow(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, wf)
					}
					fmt.Fprintln(out, renderWorkflow(wf, shouldColorize(out)))
					return nil
				}
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				fmt.Fprintln(out, renderDaemonStatus(status, shouldColorize(out)))
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				items, err := client.ListWorkflows(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No active workflows")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{item.ID, item.State, orDash(item.StartedAt), formatMillis(item.DurationMS)})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "State", "Started", "Elapsed"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <workflow-id>",
		Short: "Cancel a running workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				cancelled, err := client.CancelWorkflow(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.CancelResponse{Cancelled: cancelled})
				}
				if cancelled {
					fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s cancelled\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s already finished\n", args[0])
				}
				return nil
			})
		},
	}
}

func renderWorkflow(wf *api.Workflow, colorize bool) string {
	var lines []string
	title := wf.ID
	if wf.Title != "" {
		title = fmt.Sprintf("%s (%s)", wf.Title, wf.ID)
	}
	lines = append(lines, renderSectionHeader(title, colorize)...)
	lines = append(lines, renderStatusLine("State", stateKind(wf.State), fmt.Sprintf("%s, %s", wf.State, formatProgress(wf.Progress)), colorize))
	if wf.Topic != "" {
		lines = append(lines, renderStatusLine("Topic", statusInfo, wf.Topic, colorize))
	}
	if wf.RenderJobID != "" {
		lines = append(lines, renderStatusLine("Render job", statusInfo, wf.RenderJobID, colorize))
	}
	if wf.TotalDurationMS > 0 {
		lines = append(lines, renderStatusLine("Duration", statusInfo, formatMillis(wf.TotalDurationMS), colorize))
	}
	if wf.Error != "" {
		lines = append(lines, renderStatusLine("Error", statusError, wf.Error, colorize))
	}
	for _, file := range wf.OutputFiles {
		lines = append(lines, renderStatusLine("Output", statusOK, file, colorize))
	}
	if wf.Archived {
		lines = append(lines, renderStatusLine("Source", statusInfo, "history archive", colorize))
	}

	rows := make([][]string, 0, len(wf.Steps))
	for _, st := range wf.Steps {
		detail := st.Error
		if detail == "" && len(st.DependsOn) > 0 {
			detail = "after " + strings.Join(st.DependsOn, ", ")
		}
		rows = append(rows, []string{st.Label, st.State, formatProgress(st.Progress), formatMillis(st.DurationMS), detail})
	}
	if len(rows) > 0 {
		lines = append(lines, renderTable(
			[]string{"Step", "State", "Progress", "Time", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}
	return strings.Join(lines, "\n")
}

func renderDaemonStatus(status *api.DaemonStatus, colorize bool) string {
	lines := renderSectionHeader("Daemon", colorize)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Stopped", colorize))
	}
	if status.StartedAt != "" {
		lines = append(lines, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
	}
	lines = append(lines,
		renderStatusLine("Workflows", statusInfo, fmt.Sprintf("%d active", status.ActiveWorkflows), colorize),
		renderStatusLine("Render queue", statusInfo, fmt.Sprintf("%d running / %d limit, %d queued", status.RunningJobs, status.RenderLimit, status.QueuedJobs), colorize),
		renderStatusLine("Intake", statusInfo, yesNo(status.IntakeEnabled), colorize),
		renderStatusLine("History", statusInfo, historyLine(status), colorize),
	)
	if status.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	}

	if len(status.Dependencies) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
		for _, dep := range status.Dependencies {
			lines = append(lines, dependencyLine(dep, colorize))
		}
	}
	if len(status.StepHealth) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Steps", colorize)...)
		for _, h := range status.StepHealth {
			kind := statusOK
			if !h.Ready {
				kind = statusWarn
			}
			lines = append(lines, renderStatusLine(h.Name, kind, h.Detail, colorize))
		}
	}
	return strings.Join(lines, "\n")
}

func dependencyLine(dep api.DependencyStatus, colorize bool) string {
	switch {
	case dep.Available:
		return renderStatusLine(dep.Name, statusOK, orDash(dep.Detail), colorize)
	case dep.Optional:
		return renderStatusLine(dep.Name, statusWarn, fmt.Sprintf("%s (optional: %s)", dep.Detail, dep.Description), colorize)
	default:
		return renderStatusLine(dep.Name, statusError, fmt.Sprintf("%s (%s)", dep.Detail, dep.Description), colorize)
	}
}
