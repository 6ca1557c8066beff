package workflow

import "context"

// Handler executes one kind of step.
type Handler interface {
	Kind() Kind
	// Access declares the context fields the handler reads and writes. Steps
	// that can run concurrently must not share a write field.
	Access() (reads, writes []Field)
	// Run performs the step. The returned value is recorded as the step result.
	Run(ctx context.Context, wc *Context) (any, error)
}

// HandlerFunc adapts a function to Handler; useful for tests and simple steps.
type HandlerFunc struct {
	StepKind Kind
	Reads    []Field
	Writes   []Field
	Fn       func(ctx context.Context, wc *Context) (any, error)
}

func (h HandlerFunc) Kind() Kind { return h.StepKind }

func (h HandlerFunc) Access() ([]Field, []Field) { return h.Reads, h.Writes }

func (h HandlerFunc) Run(ctx context.Context, wc *Context) (any, error) {
	if h.Fn == nil {
		return nil, nil
	}
	return h.Fn(ctx, wc)
}

// Observer is notified once when a workflow reaches a terminal state.
type Observer interface {
	WorkflowFinished(ctx context.Context, snap Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, snap Snapshot)

func (f ObserverFunc) WorkflowFinished(ctx context.Context, snap Snapshot) { f(ctx, snap) }

// JobCanceller cancels render jobs referenced by a workflow.
type JobCanceller interface {
	Cancel(jobID string) bool
}
