package api

import (
	"time"

	"clipturbo/internal/history"
	"clipturbo/internal/render"
	"clipturbo/internal/workflow"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromSnapshot converts a workflow snapshot.
func FromSnapshot(snap workflow.Snapshot) Workflow {
	out := Workflow{
		ID:              snap.ID,
		State:           string(snap.State),
		Title:           snap.Title,
		Topic:           snap.Input.Topic,
		Progress:        snap.Progress(),
		Steps:           make([]Step, 0, len(snap.Steps)),
		OutputFiles:     snap.OutputFiles,
		Error:           snap.Error,
		RenderJobID:     snap.RenderJobID,
		CreatedAt:       formatTime(snap.CreatedAt),
		StartedAt:       formatTime(snap.StartedAt),
		EndedAt:         formatTime(snap.EndedAt),
		TotalDurationMS: snap.TotalDuration.Milliseconds(),
	}
	if out.OutputFiles == nil {
		out.OutputFiles = []string{}
	}
	for _, st := range snap.Steps {
		step := Step{
			Name:      st.Name,
			Label:     st.Label,
			Kind:      string(st.Kind),
			DependsOn: st.DependsOn,
			State:     string(st.State),
			Progress:  st.Progress,
			Error:     st.Error,
			StartedAt: formatTime(st.StartedAt),
			EndedAt:   formatTime(st.EndedAt),
		}
		if !st.StartedAt.IsZero() && !st.EndedAt.IsZero() {
			step.DurationMS = st.EndedAt.Sub(st.StartedAt).Milliseconds()
		}
		out.Steps = append(out.Steps, step)
	}
	return out
}

// FromRecord converts an archived workflow.
func FromRecord(rec history.WorkflowRecord) Workflow {
	out := FromSnapshot(rec.Snapshot)
	out.Archived = true
	return out
}

// FromSummaries converts the active workflow list.
func FromSummaries(summaries []workflow.Summary) []WorkflowSummary {
	out := make([]WorkflowSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, WorkflowSummary{
			ID:         s.ID,
			State:      string(s.State),
			StartedAt:  formatTime(s.StartedAt),
			DurationMS: s.Duration.Milliseconds(),
		})
	}
	return out
}

// FromResult converts a render result.
func FromResult(res render.Result) RenderResult {
	return RenderResult{
		Success:    res.Success,
		OutputFile: res.OutputFile,
		DurationMS: res.Duration.Milliseconds(),
		FileSize:   res.FileSize,
		Width:      res.Width,
		Height:     res.Height,
		FrameCount: res.FrameCount,
		Error:      res.Error,
		FinishedAt: formatTime(res.FinishedAt),
	}
}

// FromArchivedResult builds a job view from a result the supervisor has
// already forgotten. Only the result geometry survives archiving.
func FromArchivedResult(res render.Result) Job {
	out := FromResult(res)
	return Job{
		ID:         res.JobID,
		State:      string(res.State),
		Progress:   archivedProgress(res),
		Width:      res.Width,
		Height:     res.Height,
		OutputFile: res.OutputFile,
		Result:     &out,
		Archived:   true,
	}
}

func archivedProgress(res render.Result) float64 {
	if res.Success {
		return 100
	}
	return 0
}

// FromJobStatus converts a render job status.
func FromJobStatus(st render.JobStatus) Job {
	job := Job{
		ID:          st.JobID,
		State:       string(st.State),
		Progress:    st.Progress,
		TemplateID:  st.TemplateID,
		Quality:     string(st.Config.Quality),
		Width:       st.Config.Width,
		Height:      st.Config.Height,
		FrameRate:   st.Config.FrameRate,
		OutputFile:  st.OutputFile,
		SubmittedAt: formatTime(st.SubmittedAt),
		StartedAt:   formatTime(st.StartedAt),
	}
	if st.Result != nil {
		res := FromResult(*st.Result)
		job.Result = &res
	}
	return job
}

// FromQueue converts a supervisor snapshot and optional resource probe.
func FromQueue(snap render.Snapshot, res *render.Resources) QueueResponse {
	out := QueueResponse{
		Queued:    snap.Queued,
		Running:   snap.Running,
		Completed: snap.Completed,
		Limit:     snap.Limit,
		Jobs:      make([]Job, 0, len(snap.Jobs)),
	}
	for _, st := range snap.Jobs {
		out.Jobs = append(out.Jobs, FromJobStatus(st))
	}
	if res != nil {
		out.Resources = &Resources{
			DiskFreeBytes:  res.DiskFreeBytes,
			DiskTotalBytes: res.DiskTotal,
			LoadAverage:    res.Load,
		}
	}
	return out
}
