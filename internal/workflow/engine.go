package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipturbo/internal/content"
	"clipturbo/internal/logging"
	"clipturbo/internal/services"
)

// DefaultRetention is how long finished workflows stay queryable.
const DefaultRetention = 24 * time.Hour

const deadlockMessage = "workflow has a dependency cycle or steps that can never run"

// Options configures an Engine.
type Options struct {
	Store     Store
	Handlers  []Handler
	Renders   JobCanceller
	Observers []Observer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Engine schedules workflow graphs: every step whose dependencies completed
// runs concurrently with its peers, generation by generation.
type Engine struct {
	store     Store
	handlers  map[Kind]Handler
	renders   JobCanceller
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewEngine validates the handler set and returns an idle engine.
func NewEngine(opts Options) (*Engine, error) {
	handlers := make(map[Kind]Handler, len(opts.Handlers))
	for _, h := range opts.Handlers {
		if h == nil {
			continue
		}
		if _, dup := handlers[h.Kind()]; dup {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "init", fmt.Sprintf("duplicate handler for %q", h.Kind()), nil)
		}
		handlers[h.Kind()] = h
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:      store,
		handlers:   handlers,
		renders:    opts.Renders,
		observers:  opts.Observers,
		logger:     logging.NewComponentLogger(opts.Logger, "workflow"),
		now:        now,
		baseCtx:    ctx,
		baseCancel: cancel,
	}, nil
}

// CreateOption customizes workflow creation.
type CreateOption func(*createOptions)

type createOptions struct {
	id string
}

// WithID uses a caller-supplied workflow identifier.
func WithID(id string) CreateOption {
	return func(o *createOptions) { o.id = strings.TrimSpace(id) }
}

// Create builds the graph for the input shape, stores the workflow and starts
// it in the background.
func (e *Engine) Create(ctx context.Context, in Input, req content.Requirements, opts ...CreateOption) (string, error) {
	hasTopic := strings.TrimSpace(in.Topic) != ""
	switch {
	case hasTopic && in.Content != nil:
		return "", services.Wrap(services.ErrValidation, "workflow", "create", "topic and content are mutually exclusive", nil)
	case !hasTopic && in.Content == nil:
		return "", services.Wrap(services.ErrValidation, "workflow", "create", "either topic or content is required", nil)
	}
	in.Topic = strings.TrimSpace(in.Topic)
	return e.CreateGraph(ctx, GraphFor(in), in, req, opts...)
}

// NewID returns a fresh workflow identifier.
func NewID() string {
	return "workflow_" + uuid.NewString()
}

// CreateGraph runs an explicit step graph.
func (e *Engine) CreateGraph(ctx context.Context, specs []StepSpec, in Input, req content.Requirements, opts ...CreateOption) (string, error) {
	if err := validateGraph(specs, e.handlers); err != nil {
		return "", err
	}
	var co createOptions
	for _, opt := range opts {
		opt(&co)
	}
	id := co.id
	if id == "" {
		id = NewID()
	}
	if _, exists := e.store.Get(id); exists {
		return "", services.Wrap(services.ErrValidation, "workflow", "create", fmt.Sprintf("workflow %s already exists", id), nil)
	}

	wf := newWorkflow(id, specs, in, NewContext(id, in, req), e.now())
	runCtx := services.WithWorkflowID(e.baseCtx, id)
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		runCtx = services.WithRequestID(runCtx, rid)
	}
	runCtx, wf.cancel = context.WithCancel(runCtx)
	e.store.Put(wf)

	logging.WithContext(runCtx, e.logger).Info("workflow created",
		logging.String(logging.FieldEventType, "workflow_created"),
		logging.Int("steps", len(specs)),
		logging.Bool("user_content", in.UserProvided()),
	)

	e.wg.Add(1)
	go e.execute(runCtx, wf)
	return id, nil
}

// Status returns a snapshot of the workflow.
func (e *Engine) Status(id string) (Snapshot, bool) {
	wf, ok := e.store.Get(id)
	if !ok {
		return Snapshot{}, false
	}
	return wf.Snapshot(), true
}

// Cancel marks a workflow cancelled and cancels its render job. It returns
// false for unknown or already finished workflows.
func (e *Engine) Cancel(ctx context.Context, id string) bool {
	wf, ok := e.store.Get(id)
	if !ok {
		return false
	}
	wf.mu.Lock()
	if !wf.endLocked(StateCancelled, "workflow cancelled", e.now()) {
		wf.mu.Unlock()
		return false
	}
	cancel := wf.cancel
	jobID := wf.wc.RenderJobID()
	wf.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if jobID != "" && e.renders != nil {
		e.renders.Cancel(jobID)
	}
	logging.WithContext(services.WithWorkflowID(ctx, id), e.logger).Info("workflow cancelled",
		logging.String(logging.FieldEventType, "workflow_cancelled"),
		logging.String(logging.FieldJobID, jobID),
	)
	return true
}

// ListActive returns created and running workflows ordered by start time.
func (e *Engine) ListActive() []Summary {
	now := e.now()
	var out []Summary
	for _, wf := range e.store.List() {
		wf.mu.Lock()
		if !wf.state.Terminal() {
			start := wf.startedAt
			if start.IsZero() {
				start = wf.createdAt
			}
			out = append(out, Summary{ID: wf.id, State: wf.state, StartedAt: start, Duration: now.Sub(start)})
		}
		wf.mu.Unlock()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Wait blocks until the workflow is terminal and its observers have run.
func (e *Engine) Wait(ctx context.Context, id string) (Snapshot, error) {
	wf, ok := e.store.Get(id)
	if !ok {
		return Snapshot{}, services.Wrap(services.ErrNotFound, "workflow", "wait", "unknown workflow "+id, nil)
	}
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-wf.done:
		return wf.Snapshot(), nil
	}
}

// Sweep removes terminal workflows that ended more than maxAge ago.
func (e *Engine) Sweep(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}
	cutoff := e.now().Add(-maxAge)
	removed := 0
	for _, wf := range e.store.List() {
		wf.mu.Lock()
		expired := wf.state.Terminal() && !wf.endedAt.IsZero() && wf.endedAt.Before(cutoff)
		wf.mu.Unlock()
		if expired {
			e.store.Delete(wf.id)
			removed++
		}
	}
	if removed > 0 {
		e.logger.Info("swept finished workflows", logging.Int("removed", removed), logging.Duration("max_age", maxAge))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx ends.
func (e *Engine) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep(maxAge)
		}
	}
}

// Shutdown cancels every active workflow and waits for their goroutines.
func (e *Engine) Shutdown(ctx context.Context) error {
	for _, s := range e.ListActive() {
		e.Cancel(ctx, s.ID)
	}
	e.baseCancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) execute(ctx context.Context, wf *Workflow) {
	defer e.wg.Done()
	defer wf.cancel()
	logger := logging.WithContext(ctx, e.logger)

	wf.mu.Lock()
	if wf.state == StateCreated {
		wf.state = StateRunning
		wf.startedAt = e.now()
	}
	wf.mu.Unlock()

	for {
		wf.mu.Lock()
		if wf.state.Terminal() {
			wf.mu.Unlock()
			break
		}
		ready, failed, unfinished := wf.scanLocked()
		if unfinished == 0 {
			wf.mu.Unlock()
			break
		}
		if len(ready) == 0 {
			if len(failed) == 0 {
				wf.endLocked(StateFailed, services.Wrap(services.ErrDeadlock, "", "", deadlockMessage, nil).Error(), e.now())
				wf.mu.Unlock()
				logging.ErrorWithContext(logger, "workflow deadlocked", "workflow_deadlock",
					logging.Alert("deadlock"),
					logging.Int("unfinished_steps", unfinished),
					logging.String(logging.FieldErrorHint, "check the graph for dependency cycles"),
				)
				break
			}
			wf.endLocked(StateFailed, "steps failed: "+strings.Join(failed, ", "), e.now())
			wf.mu.Unlock()
			break
		}
		started := e.now()
		for _, st := range ready {
			st.state = StepRunning
			st.startedAt = started
		}
		wf.mu.Unlock()

		var wg sync.WaitGroup
		for _, st := range ready {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.runStep(ctx, wf, st)
			}()
		}
		wg.Wait()
	}

	e.finish(ctx, wf, logger)
}

func (e *Engine) runStep(ctx context.Context, wf *Workflow, st *step) {
	stepCtx := withProgress(services.WithStep(ctx, st.name), wf, st)
	logger := logging.WithContext(stepCtx, e.logger)
	logger.Info("step started", logging.String(logging.FieldEventType, "step_start"), logging.String("label", st.kind.Label()))

	result, err := invoke(stepCtx, e.handlers[st.kind], wf.wc)

	wf.mu.Lock()
	defer wf.mu.Unlock()
	st.endedAt = e.now()
	if err != nil {
		st.state = StepFailed
		st.err = services.Details(err).Message
		logging.ErrorWithContext(logger, "step failed", "step_failure",
			logging.String("error_message", st.err),
			logging.String("error_kind", services.Details(err).Kind),
			logging.Duration("elapsed", st.endedAt.Sub(st.startedAt)),
			logging.Error(err),
		)
		return
	}
	st.state = StepCompleted
	st.progress = 100
	st.result = result
	logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.Duration("elapsed", st.endedAt.Sub(st.startedAt)),
	)
}

// invoke runs a handler, turning panics into step errors.
func invoke(ctx context.Context, h Handler, wc *Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return h.Run(ctx, wc)
}

func (e *Engine) finish(ctx context.Context, wf *Workflow, logger *slog.Logger) {
	wf.mu.Lock()
	if failed := wf.failedStepsLocked(); len(failed) > 0 {
		wf.endLocked(StateFailed, "steps failed: "+strings.Join(failed, ", "), e.now())
	} else {
		wf.endLocked(StateCompleted, "", e.now())
	}
	if wf.state == StateFailed {
		wf.skipPendingLocked()
	}
	snap := wf.snapshotLocked()
	wf.mu.Unlock()

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "workflow_finished"),
		logging.String("state", string(snap.State)),
		logging.Duration("total_duration", snap.TotalDuration),
		logging.Int("output_files", len(snap.OutputFiles)),
	}
	if snap.State == StateFailed {
		var failedSteps []string
		for _, st := range snap.Steps {
			if st.State == StepFailed {
				failedSteps = append(failedSteps, st.Name)
			}
		}
		logging.WarnWithContext(logger, "workflow failed", "workflow_failed", append(attrs,
			logging.String("reason", snap.Error),
			logging.Strings("failed_steps", failedSteps),
			logging.Float64("progress", snap.Progress()),
			logging.String(logging.FieldErrorHint, "run `clipturbo status "+snap.ID+"` for per-step errors"),
			logging.String(logging.FieldImpact, "no video was produced"))...)
	} else {
		logger.Info("workflow finished", logging.Args(attrs...)...)
	}

	notifyCtx := context.WithoutCancel(ctx)
	for _, obs := range e.observers {
		obs.WorkflowFinished(notifyCtx, snap)
	}
	close(wf.done)
}
