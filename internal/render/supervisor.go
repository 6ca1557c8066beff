package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipturbo/internal/config"
	"clipturbo/internal/logging"
	"clipturbo/internal/scene"
	"clipturbo/internal/services"
)

// State is a render job lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

const (
	maxProgress           = 95.0
	defaultTick           = time.Second
	defaultAssumedRuntime = 30 * time.Second
)

// Result is the terminal outcome of a render job. It is produced exactly once.
type Result struct {
	JobID      string        `json:"job_id"`
	State      State         `json:"state"`
	Success    bool          `json:"success"`
	OutputFile string        `json:"output_file,omitempty"`
	Duration   time.Duration `json:"duration"`
	FileSize   int64         `json:"file_size"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	FrameCount int           `json:"frame_count"`
	Error      string        `json:"error,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
}

// JobStatus is a point-in-time view of one job.
type JobStatus struct {
	JobID       string    `json:"job_id"`
	State       State     `json:"state"`
	Progress    float64   `json:"progress"`
	TemplateID  string    `json:"template_id,omitempty"`
	Config      Config    `json:"config"`
	OutputFile  string    `json:"output_file"`
	SubmittedAt time.Time `json:"submitted_at"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	Result      *Result   `json:"result,omitempty"`
}

// Snapshot summarizes the supervisor's queue.
type Snapshot struct {
	Queued    int         `json:"queued"`
	Running   int         `json:"running"`
	Completed int         `json:"completed"`
	Limit     int         `json:"limit"`
	Jobs      []JobStatus `json:"jobs"`
}

// Options configures a Supervisor.
type Options struct {
	Binary          string
	OutputDir       string
	TempDir         string
	MaxConcurrent   int
	Tick            time.Duration
	AssumedDuration time.Duration
	DefaultQuality  Quality
	DefaultFormat   string
	Launcher        Launcher
	Logger          *slog.Logger
	// OnResult is called outside the supervisor lock after each job finalizes.
	OnResult func(Result)
	Now      func() time.Time
}

type job struct {
	id          string
	templateID  string
	sceneClass  string
	cfg         Config
	scriptPath  string
	outputPath  string
	state       State
	progress    float64
	submittedAt time.Time
	startedAt   time.Time
	proc        Process
	cancelled   bool
	result      *Result
	done        chan struct{}

	// awaited is set once a caller holds the done channel; collected once
	// Wait has handed the result back. ClearCompleted keeps awaited jobs
	// until they are collected.
	awaited   bool
	collected bool
}

// Supervisor runs render jobs with bounded concurrency.
type Supervisor struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	queue   []*job
	running map[string]*job
	closed  bool

	loopMu  sync.Mutex
	looping bool
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// New constructs a Supervisor and creates its scratch and output directories.
func New(opts Options) (*Supervisor, error) {
	if strings.TrimSpace(opts.TempDir) == "" || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "render", "init", "temp and output directories are required", nil)
	}
	for _, dir := range []string{opts.TempDir, opts.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "render", "init", "create directory "+dir, err)
		}
	}
	if opts.Binary == "" {
		opts.Binary = "manim"
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.AssumedDuration <= 0 {
		opts.AssumedDuration = defaultAssumedRuntime
	}
	if _, ok := presets[opts.DefaultQuality]; !ok {
		opts.DefaultQuality = QualityMedium
	}
	opts.DefaultFormat = normalizeFormat(opts.DefaultFormat)
	if opts.DefaultFormat == "" {
		opts.DefaultFormat = "mp4"
	}
	if opts.Launcher == nil {
		opts.Launcher = ExecLauncher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Supervisor{
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "render"),
		jobs:    make(map[string]*job),
		running: make(map[string]*job),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// NewFromConfig builds a Supervisor from daemon configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, onResult func(Result)) (*Supervisor, error) {
	quality, err := ParseQuality(cfg.Render.DefaultQuality)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "render", "init", "default quality", err)
	}
	return New(Options{
		Binary:          cfg.Render.ManimBinary,
		OutputDir:       cfg.Paths.OutputDir,
		TempDir:         cfg.Paths.TempDir,
		MaxConcurrent:   cfg.Render.MaxConcurrent,
		Tick:            cfg.RenderTick(),
		AssumedDuration: time.Duration(cfg.Render.AssumedDurationSeconds) * time.Second,
		DefaultQuality:  quality,
		DefaultFormat:   cfg.Render.OutputFormat,
		Logger:          logger,
		OnResult:        onResult,
	})
}

// Limit returns the maximum number of concurrently running jobs.
func (s *Supervisor) Limit() int { return s.opts.MaxConcurrent }

// SubmitOption customizes a submission.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	jobID string
}

// WithJobID uses id instead of a generated identifier.
func WithJobID(id string) SubmitOption {
	return func(o *submitOptions) { o.jobID = strings.TrimSpace(id) }
}

// Submit writes the scene script to the scratch directory and queues the job.
func (s *Supervisor) Submit(ctx context.Context, r *scene.Renderable, cfg Config, opts ...SubmitOption) (string, error) {
	if r == nil || strings.TrimSpace(r.Source) == "" {
		return "", services.Wrap(services.ErrValidation, "render", "submit", "renderable has no source", nil)
	}
	var so submitOptions
	for _, opt := range opts {
		opt(&so)
	}
	id := so.jobID
	if id == "" {
		id = "render_" + uuid.NewString()
	}
	resolved := cfg.Resolved(s.opts.DefaultQuality, s.opts.DefaultFormat)
	sceneClass := r.SceneClass
	if sceneClass == "" {
		sceneClass = scene.SceneClass
	}
	j := &job{
		id:         id,
		templateID: r.TemplateID,
		sceneClass: sceneClass,
		cfg:        resolved,
		scriptPath: filepath.Join(s.opts.TempDir, "scene_"+id+".py"),
		outputPath: filepath.Join(s.opts.OutputDir, id+"."+resolved.Format),
		state:      StatePending,
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", services.Wrap(services.ErrCancelled, "render", "submit", "supervisor is shut down", nil)
	}
	if _, exists := s.jobs[id]; exists {
		return "", services.Wrap(services.ErrValidation, "render", "submit", fmt.Sprintf("job %s already exists", id), nil)
	}
	if err := os.WriteFile(j.scriptPath, []byte(r.Source), 0o644); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "render", "submit", "write scene script", err)
	}
	j.submittedAt = s.opts.Now()
	s.jobs[id] = j
	s.queue = append(s.queue, j)
	logging.WithContext(services.WithJobID(ctx, id), s.logger).Info("render job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String("quality", string(resolved.Quality)),
		logging.String("resolution", fmt.Sprintf("%dx%d", resolved.Width, resolved.Height)),
		logging.Int("queue_depth", len(s.queue)),
	)
	return id, nil
}

// Preview queues a low-quality preview render. A nil cfg renders at 640x360.
func (s *Supervisor) Preview(ctx context.Context, r *scene.Renderable, cfg *Config) (string, error) {
	c := Config{Width: 640, Height: 360}
	if cfg != nil {
		c = *cfg
	}
	c.Quality = QualityLow
	c.Preview = true
	return s.Submit(ctx, r, c, WithJobID("preview_"+uuid.NewString()))
}

// Status reports a job's current state.
func (s *Supervisor) Status(id string) (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return JobStatus{}, false
	}
	return j.status(), true
}

// Done returns a channel closed once the job's result is recorded. The job is
// kept through ClearCompleted until its result is read with Wait.
func (s *Supervisor) Done(id string) (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	j.awaited = true
	return j.done, true
}

// Wait blocks until the job finishes or ctx ends.
func (s *Supervisor) Wait(ctx context.Context, id string) (Result, error) {
	done, ok := s.Done(id)
	if !ok {
		return Result{}, services.Wrap(services.ErrNotFound, "render", "wait", "unknown job "+id, nil)
	}
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-done:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.result == nil {
		return Result{}, services.Wrap(services.ErrNotFound, "render", "wait", "result for "+id+" was cleared", nil)
	}
	j.collected = true
	return *j.result, nil
}

// Cancel removes a queued job or signals a running one. It returns false for
// unknown or already finished jobs.
func (s *Supervisor) Cancel(id string) bool {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || j.state.Terminal() || j.cancelled {
		s.mu.Unlock()
		return false
	}
	// A cancelled result is not held back for waiters.
	j.collected = true
	var finished []Result
	switch j.state {
	case StatePending:
		s.removeQueuedLocked(j)
		j.cancelled = true
		finished = append(finished, s.finalizeLocked(j, 0, ""))
	case StateRunning:
		j.cancelled = true
		j.state = StateCancelled
		if err := j.proc.Terminate(); err != nil {
			logging.WarnWithContext(s.logger, "terminate render process failed", "job_terminate_failed",
				logging.String(logging.FieldJobID, id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the process may need to be killed manually"),
			)
		}
	}
	s.mu.Unlock()
	s.logger.Info("render job cancelled", logging.String(logging.FieldJobID, id), logging.String(logging.FieldEventType, "job_cancelled"))
	s.emit(finished)
	return true
}

// Snapshot returns queue counters and every tracked job ordered by submission.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Queued:  len(s.queue),
		Running: len(s.running),
		Limit:   s.opts.MaxConcurrent,
		Jobs:    make([]JobStatus, 0, len(s.jobs)),
	}
	for _, j := range s.jobs {
		if j.result != nil {
			snap.Completed++
		}
		snap.Jobs = append(snap.Jobs, j.status())
	}
	sort.Slice(snap.Jobs, func(i, k int) bool {
		if snap.Jobs[i].SubmittedAt.Equal(snap.Jobs[k].SubmittedAt) {
			return snap.Jobs[i].JobID < snap.Jobs[k].JobID
		}
		return snap.Jobs[i].SubmittedAt.Before(snap.Jobs[k].SubmittedAt)
	})
	return snap
}

// ClearCompleted forgets finished jobs and returns how many were removed. A
// job someone is waiting on stays until Wait has returned its result.
func (s *Supervisor) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, j := range s.jobs {
		if j.result != nil && (!j.awaited || j.collected) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Run drives the dispatch loop until ctx ends or Shutdown is called.
func (s *Supervisor) Run(ctx context.Context) {
	s.loopMu.Lock()
	if s.looping {
		s.loopMu.Unlock()
		return
	}
	s.looping = true
	s.loopMu.Unlock()
	defer close(s.stopped)

	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}

// Shutdown cancels every job, stops the loop and removes the scratch directory.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	s.closed = true
	var finished []Result
	for _, j := range s.queue {
		j.cancelled = true
		finished = append(finished, s.finalizeLocked(j, 0, ""))
	}
	s.queue = nil
	for _, j := range s.running {
		j.cancelled = true
		if err := j.proc.Terminate(); err != nil {
			s.logger.Debug("terminate during shutdown failed", logging.String(logging.FieldJobID, j.id), logging.Error(err))
		}
		finished = append(finished, s.finalizeLocked(j, 0, ""))
	}
	s.mu.Unlock()
	s.emit(finished)

	s.once.Do(func() { close(s.stop) })
	s.loopMu.Lock()
	looping := s.looping
	s.loopMu.Unlock()
	if looping {
		<-s.stopped
	}
	if err := os.RemoveAll(s.opts.TempDir); err != nil {
		s.logger.Warn("remove scratch directory failed", logging.String("path", s.opts.TempDir), logging.Error(err))
	}
}

func (s *Supervisor) tick(ctx context.Context) {
	s.mu.Lock()
	var finished []Result
	for _, j := range s.running {
		if done, code, stderr := j.proc.Exited(); done {
			finished = append(finished, s.finalizeLocked(j, code, stderr))
		}
	}
	for len(s.running) < s.opts.MaxConcurrent && len(s.queue) > 0 {
		j := s.queue[0]
		s.queue = s.queue[1:]
		if result, failed := s.launchLocked(ctx, j); failed {
			finished = append(finished, result)
		}
	}
	now := s.opts.Now()
	for _, j := range s.running {
		j.progress = progressFor(now.Sub(j.startedAt), s.opts.AssumedDuration)
	}
	s.mu.Unlock()
	s.emit(finished)
}

func (s *Supervisor) launchLocked(ctx context.Context, j *job) (Result, bool) {
	cmd := Command{
		Binary: s.opts.Binary,
		Args:   j.cfg.Args(j.scriptPath, j.sceneClass, j.outputPath),
		Dir:    s.opts.TempDir,
	}
	j.startedAt = s.opts.Now()
	proc, err := s.opts.Launcher.Launch(ctx, cmd)
	if err != nil {
		logging.ErrorWithContext(s.logger, "render launch failed", "job_launch_failed",
			logging.String(logging.FieldJobID, j.id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `clipturbo deps` to confirm manim is installed"),
		)
		return s.finalizeWithError(j, fmt.Sprintf("launch render process: %v", err)), true
	}
	j.proc = proc
	j.state = StateRunning
	s.running[j.id] = j
	s.logger.Info("render job started",
		logging.String(logging.FieldJobID, j.id),
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("command", s.opts.Binary+" "+strings.Join(cmd.Args, " ")),
		logging.Int("running", len(s.running)),
	)
	return Result{}, false
}

func progressFor(elapsed, assumed time.Duration) float64 {
	if elapsed <= 0 || assumed <= 0 {
		return 0
	}
	return min(elapsed.Seconds()/assumed.Seconds()*100, maxProgress)
}

func (s *Supervisor) finalizeWithError(j *job, message string) Result {
	return s.record(j, Result{State: StateFailed, Error: message})
}

// finalizeLocked turns an exited (or never started) job into its Result.
func (s *Supervisor) finalizeLocked(j *job, exitCode int, stderr string) Result {
	switch {
	case j.cancelled:
		return s.record(j, Result{State: StateCancelled, Error: "render cancelled"})
	case exitCode != 0:
		message := strings.TrimSpace(stderr)
		if message == "" {
			message = fmt.Sprintf("render process exited with code %d", exitCode)
		}
		return s.record(j, Result{State: StateFailed, Error: message})
	}
	info, err := os.Stat(j.outputPath)
	if err != nil || info.IsDir() {
		return s.record(j, Result{State: StateFailed, Error: "output file missing"})
	}
	return s.record(j, Result{State: StateCompleted, Success: true, OutputFile: j.outputPath, FileSize: info.Size()})
}

func (s *Supervisor) record(j *job, res Result) Result {
	now := s.opts.Now()
	res.JobID = j.id
	res.Width, res.Height = j.cfg.Width, j.cfg.Height
	res.FinishedAt = now
	if !j.startedAt.IsZero() {
		res.Duration = now.Sub(j.startedAt)
	}
	j.state = res.State
	if res.Success {
		j.progress = 100
	}
	j.result = &res
	delete(s.running, j.id)
	s.cleanup(j)
	close(j.done)

	attrs := []logging.Attr{
		logging.String(logging.FieldJobID, j.id),
		logging.String(logging.FieldEventType, "job_finalized"),
		logging.String("state", string(res.State)),
		logging.Duration("duration", res.Duration),
	}
	if res.Success {
		s.logger.Info("render job finished", logging.Args(append(attrs, logging.String("output", res.OutputFile), logging.Int64("bytes", res.FileSize))...)...)
	} else if res.State == StateFailed {
		logging.WarnWithContext(s.logger, "render job failed", "job_failed",
			append(attrs, logging.String("reason", res.Error),
				logging.String(logging.FieldErrorHint, "inspect the scene script or rerun with a lower quality"),
				logging.String(logging.FieldImpact, "workflow rendering step will fail"))...)
	} else {
		s.logger.Info("render job cancelled", logging.Args(attrs...)...)
	}
	return res
}

func (s *Supervisor) cleanup(j *job) {
	_ = os.Remove(j.scriptPath)
	matches, err := filepath.Glob(filepath.Join(s.opts.TempDir, "*"+j.id+"*"))
	if err != nil {
		return
	}
	for _, match := range matches {
		if err := os.RemoveAll(match); err != nil {
			s.logger.Debug("remove render scratch file failed", logging.String("path", match), logging.Error(err))
		}
	}
}

func (s *Supervisor) removeQueuedLocked(target *job) {
	for i, j := range s.queue {
		if j == target {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

func (s *Supervisor) emit(results []Result) {
	if s.opts.OnResult == nil {
		return
	}
	for _, res := range results {
		s.opts.OnResult(res)
	}
}

func (j *job) status() JobStatus {
	st := JobStatus{
		JobID:       j.id,
		State:       j.state,
		Progress:    j.progress,
		TemplateID:  j.templateID,
		Config:      j.cfg,
		OutputFile:  j.outputPath,
		SubmittedAt: j.submittedAt,
		StartedAt:   j.startedAt,
	}
	if j.result != nil {
		res := *j.result
		st.Result = &res
	}
	return st
}
