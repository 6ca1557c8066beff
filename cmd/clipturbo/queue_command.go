package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipturbo/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show the render queue and host capacity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				q, err := client.Queue(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, q)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderQueue(q, shouldColorize(out)))
				return nil
			})
		},
	}
}

func renderQueue(q *api.QueueResponse, colorize bool) string {
	lines := renderSectionHeader("Render queue", colorize)
	lines = append(lines, renderStatusLine("Slots", statusInfo, fmt.Sprintf("%d running / %d limit", q.Running, q.Limit), colorize))
	lines = append(lines, renderStatusLine("Queued", statusInfo, fmt.Sprintf("%d", q.Queued), colorize))
	lines = append(lines, renderStatusLine("Completed", statusInfo, fmt.Sprintf("%d", q.Completed), colorize))
	if res := q.Resources; res != nil {
		lines = append(lines,
			renderStatusLine("Disk free", statusInfo, fmt.Sprintf("%s of %s", formatBytes(res.DiskFreeBytes), formatBytes(res.DiskTotalBytes)), colorize),
			renderStatusLine("Load", statusInfo, fmt.Sprintf("%.2f %.2f %.2f", res.LoadAverage[0], res.LoadAverage[1], res.LoadAverage[2]), colorize),
		)
	}
	if len(q.Jobs) == 0 {
		return strings.Join(lines, "\n")
	}
	rows := make([][]string, 0, len(q.Jobs))
	for _, job := range q.Jobs {
		rows = append(rows, []string{job.ID, job.State, formatProgress(job.Progress), job.Quality, orDash(job.TemplateID)})
	}
	lines = append(lines, renderTable(
		[]string{"Job", "State", "Progress", "Quality", "Template"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return strings.Join(lines, "\n")
}
