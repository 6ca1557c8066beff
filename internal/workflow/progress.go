package workflow

import "context"

type progressKey struct{}

type progressFunc func(percent float64)

// ReportProgress updates the running step's progress (0-100). It is a no-op
// outside a step.
func ReportProgress(ctx context.Context, percent float64) {
	if fn, ok := ctx.Value(progressKey{}).(progressFunc); ok {
		fn(min(max(percent, 0), 100))
	}
}

func withProgress(ctx context.Context, wf *Workflow, st *step) context.Context {
	return context.WithValue(ctx, progressKey{}, progressFunc(func(percent float64) {
		wf.mu.Lock()
		defer wf.mu.Unlock()
		if st.state == StepRunning {
			st.progress = percent
		}
	}))
}
