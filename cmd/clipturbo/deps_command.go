package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipturbo/internal/api"
	"clipturbo/internal/deps"
	"clipturbo/internal/preflight"
)

type depsReport struct {
	Dependencies []api.DependencyStatus `json:"dependencies"`
	Checks       []checkResult          `json:"checks"`
}

type checkResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external binaries, directories and services locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			checks := preflight.RunAll(cmd.Context(), cfg)

			report := depsReport{}
			for _, st := range statuses {
				report.Dependencies = append(report.Dependencies, api.DependencyStatus{
					Name:        st.Name,
					Command:     st.Command,
					Description: st.Description,
					Optional:    st.Optional,
					Available:   st.Available,
					Detail:      st.Detail,
				})
			}
			for _, c := range checks {
				report.Checks = append(report.Checks, checkResult{Name: c.Name, Passed: c.Passed, Detail: c.Detail})
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := renderSectionHeader("Dependencies", colorize)
				for _, dep := range report.Dependencies {
					lines = append(lines, dependencyLine(dep, colorize))
				}
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Checks", colorize)...)
				for _, c := range checks {
					kind := statusOK
					if !c.Passed {
						kind = statusWarn
					}
					lines = append(lines, renderStatusLine(c.Name, kind, c.Detail, colorize))
				}
				fmt.Fprintln(out, strings.Join(lines, "\n"))
			}

			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				return fmt.Errorf("missing required dependencies: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}
