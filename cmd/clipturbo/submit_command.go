package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipturbo/internal/api"
	"clipturbo/internal/content"
	"clipturbo/internal/intake"
	"clipturbo/internal/workflow"
)

type submitOptions struct {
	file       string
	wait       bool
	queue      bool
	id         string
	quality    string
	style      string
	language   string
	duration   int
	resolution []int
	pollEvery  time.Duration
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit [topic...]",
		Short: "Submit a topic or a content file for rendering",
		Long: `Submit starts a workflow. Pass a topic to have the script written by the
configured LLM, or --file with a YAML/JSON submission carrying your own content.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := buildSubmission(args, opts)
			if err != nil {
				return err
			}
			if opts.queue {
				return queueSubmission(cmd, ctx, sub)
			}
			return ctx.withClient(func(client *api.Client) error {
				id, err := client.CreateWorkflow(cmd.Context(), sub)
				if err != nil {
					return err
				}
				if !opts.wait {
					if ctx.jsonOutput() {
						return writeJSON(cmd, api.CreateWorkflowResponse{ID: id})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s submitted\n", id)
					return nil
				}
				return waitForWorkflow(cmd, ctx, client, id, opts.pollEvery)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Submission file (YAML or JSON)")
	cmd.Flags().BoolVarP(&opts.wait, "wait", "w", false, "Wait for the workflow to finish")
	cmd.Flags().BoolVar(&opts.queue, "queue", false, "Push to the Redis intake list instead of calling the API")
	cmd.Flags().StringVar(&opts.id, "id", "", "Workflow identifier to use")
	cmd.Flags().StringVar(&opts.quality, "quality", "", "Render quality (low, medium, high, production)")
	cmd.Flags().StringVar(&opts.style, "style", "", "Content style ("+strings.Join(content.StyleNames(), ", ")+")")
	cmd.Flags().StringVar(&opts.language, "language", "", "Script language")
	cmd.Flags().IntVar(&opts.duration, "duration", 0, "Target duration in seconds")
	cmd.Flags().IntSliceVar(&opts.resolution, "resolution", nil, "Output resolution as WIDTH,HEIGHT")
	cmd.Flags().DurationVar(&opts.pollEvery, "poll", time.Second, "Status poll interval with --wait")
	return cmd
}

func buildSubmission(args []string, opts submitOptions) (content.Submission, error) {
	topic := strings.TrimSpace(strings.Join(args, " "))
	var sub content.Submission
	switch {
	case opts.file != "" && topic != "":
		return sub, fmt.Errorf("pass either a topic or --file, not both")
	case opts.file != "":
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return sub, fmt.Errorf("read submission: %w", err)
		}
		if sub, err = content.Parse(data); err != nil {
			return sub, err
		}
	default:
		sub.Topic = topic
	}

	if opts.id != "" {
		sub.WorkflowID = strings.TrimSpace(opts.id)
	}
	req := &sub.Requirements
	if opts.quality != "" {
		req.Quality = opts.quality
	}
	if opts.style != "" {
		req.Style = opts.style
	}
	if opts.language != "" {
		req.Language = opts.language
	}
	if opts.duration > 0 {
		req.Duration = opts.duration
	}
	if len(opts.resolution) > 0 {
		req.Resolution = opts.resolution
	}
	return sub, sub.Validate()
}

func queueSubmission(cmd *cobra.Command, ctx *commandContext, sub content.Submission) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if sub.WorkflowID == "" {
		sub.WorkflowID = workflow.NewID()
	}
	rdb := intake.NewClient(cfg)
	defer rdb.Close()
	if err := intake.NewRedisQueue(rdb, cfg.Intake.List).Push(cmd.Context(), sub); err != nil {
		return err
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.CreateWorkflowResponse{ID: sub.WorkflowID})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s queued on %s\n", sub.WorkflowID, cfg.Intake.List)
	return nil
}

func waitForWorkflow(cmd *cobra.Command, ctx *commandContext, client *api.Client, id string, every time.Duration) error {
	if every <= 0 {
		every = time.Second
	}
	out := cmd.OutOrStdout()
	lastLine := ""
	for {
		wf, err := client.Workflow(cmd.Context(), id)
		if err != nil {
			return err
		}
		if workflow.State(wf.State).Terminal() {
			if ctx.jsonOutput() {
				return writeJSON(cmd, wf)
			}
			fmt.Fprintln(out, renderWorkflow(wf, shouldColorize(out)))
			if wf.State != string(workflow.StateCompleted) {
				return fmt.Errorf("workflow %s %s", id, wf.State)
			}
			return nil
		}
		if !ctx.jsonOutput() {
			if line := progressLine(wf); line != lastLine {
				fmt.Fprintln(out, line)
				lastLine = line
			}
		}
		select {
		case <-cmd.Context().Done():
			return context.Cause(cmd.Context())
		case <-time.After(every):
		}
	}
}

func progressLine(wf *api.Workflow) string {
	current := ""
	for _, st := range wf.Steps {
		if st.State == string(workflow.StepRunning) {
			current = st.Label
			break
		}
	}
	if current == "" {
		return fmt.Sprintf("%s %s", formatProgress(wf.Progress), wf.State)
	}
	return fmt.Sprintf("%s %s", formatProgress(wf.Progress), current)
}
