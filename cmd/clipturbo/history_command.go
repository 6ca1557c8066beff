package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipturbo/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished workflows, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				items, err := client.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No finished workflows")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, wf := range items {
					output := "-"
					if len(wf.OutputFiles) > 0 {
						output = wf.OutputFiles[0]
					}
					rows = append(rows, []string{wf.ID, wf.State, orDash(wf.Title), orDash(wf.EndedAt), formatMillis(wf.TotalDurationMS), output})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "State", "Title", "Ended", "Duration", "Output"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	return cmd
}
