package workflow

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// Workflow is one execution of a step graph. All fields are guarded by mu;
// callers outside the package read it through Snapshot.
type Workflow struct {
	id    string
	input Input
	wc    *Context

	mu            sync.Mutex
	state         State
	steps         map[string]*step
	order         []string
	createdAt     time.Time
	startedAt     time.Time
	endedAt       time.Time
	totalDuration time.Duration
	errMsg        string
	cancel        context.CancelFunc
	done          chan struct{}
}

func newWorkflow(id string, specs []StepSpec, in Input, wc *Context, now time.Time) *Workflow {
	wf := &Workflow{
		id:        id,
		input:     in,
		wc:        wc,
		state:     StateCreated,
		steps:     make(map[string]*step, len(specs)),
		order:     make([]string, 0, len(specs)),
		createdAt: now,
		done:      make(chan struct{}),
	}
	for _, spec := range specs {
		wf.steps[spec.Name] = &step{
			name:      spec.Name,
			kind:      spec.Kind,
			dependsOn: slices.Clone(spec.DependsOn),
			state:     StepPending,
		}
		wf.order = append(wf.order, spec.Name)
	}
	return wf
}

// ID returns the workflow identifier.
func (wf *Workflow) ID() string { return wf.id }

// Snapshot copies the workflow's current state.
func (wf *Workflow) Snapshot() Snapshot {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	return wf.snapshotLocked()
}

func (wf *Workflow) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:            wf.id,
		State:         wf.state,
		Input:         wf.input,
		Steps:         make([]StepSnapshot, 0, len(wf.order)),
		OutputFiles:   wf.wc.OutputFiles(),
		Error:         wf.errMsg,
		RenderJobID:   wf.wc.RenderJobID(),
		CreatedAt:     wf.createdAt,
		StartedAt:     wf.startedAt,
		EndedAt:       wf.endedAt,
		TotalDuration: wf.totalDuration,
	}
	if vc := wf.wc.Content(); vc != nil {
		snap.Title = vc.Title
	}
	if snap.OutputFiles == nil {
		snap.OutputFiles = []string{}
	}
	for _, name := range wf.order {
		st := wf.steps[name]
		snap.Steps = append(snap.Steps, StepSnapshot{
			Name:      st.name,
			Label:     st.kind.Label(),
			Kind:      st.kind,
			DependsOn: slices.Clone(st.dependsOn),
			State:     st.state,
			Progress:  st.progress,
			Error:     st.err,
			Result:    st.result,
			StartedAt: st.startedAt,
			EndedAt:   st.endedAt,
		})
	}
	return snap
}

// scanLocked classifies steps: ready ones have every dependency completed.
func (wf *Workflow) scanLocked() (ready []*step, failed []string, unfinished int) {
	for _, name := range wf.order {
		st := wf.steps[name]
		switch st.state {
		case StepFailed:
			failed = append(failed, st.name)
		case StepPending:
			unfinished++
			if wf.depsCompletedLocked(st) {
				ready = append(ready, st)
			}
		case StepRunning:
			unfinished++
		}
	}
	return ready, failed, unfinished
}

func (wf *Workflow) depsCompletedLocked(st *step) bool {
	for _, dep := range st.dependsOn {
		if d, ok := wf.steps[dep]; !ok || d.state != StepCompleted {
			return false
		}
	}
	return true
}

func (wf *Workflow) failedStepsLocked() []string {
	var failed []string
	for _, name := range wf.order {
		if wf.steps[name].state == StepFailed {
			failed = append(failed, name)
		}
	}
	return failed
}

// endLocked records the terminal state and totals exactly once.
func (wf *Workflow) endLocked(state State, message string, now time.Time) bool {
	if wf.state.Terminal() {
		return false
	}
	wf.state = state
	wf.errMsg = strings.TrimSpace(message)
	wf.endedAt = now
	start := wf.startedAt
	if start.IsZero() {
		start = wf.createdAt
	}
	wf.totalDuration = now.Sub(start)
	return true
}

func (wf *Workflow) skipPendingLocked() {
	for _, st := range wf.steps {
		if st.state == StepPending {
			st.state = StepSkipped
		}
	}
}
