package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipturbo/internal/api"
	"clipturbo/internal/config"
	"clipturbo/internal/deps"
	"clipturbo/internal/history"
	"clipturbo/internal/intake"
	"clipturbo/internal/logging"
	"clipturbo/internal/preflight"
	"clipturbo/internal/render"
	"clipturbo/internal/steps"
	"clipturbo/internal/workflow"
)

const shutdownTimeout = 30 * time.Second

// Options wires the daemon to already-constructed components. History and
// Intake are optional.
type Options struct {
	Config   *config.Config
	Engine   *workflow.Engine
	Renders  *render.Supervisor
	Handlers []workflow.Handler
	History  *history.Store
	Intake   *intake.Consumer
	LogPath  string
	Logger   *slog.Logger
}

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	engine   *workflow.Engine
	renders  *render.Supervisor
	handlers []workflow.Handler
	history  *history.Store
	intake   *intake.Consumer
	logPath  string
	logger   *slog.Logger

	lockPath string
	lock     *flock.Flock
	api      *api.Server

	running   atomic.Bool
	startedAt time.Time
	deps      []deps.Status
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New constructs a daemon with initialized dependencies.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Engine == nil || opts.Renders == nil {
		return nil, errors.New("daemon requires config, workflow engine, and render supervisor")
	}
	d := &Daemon{
		cfg:      opts.Config,
		engine:   opts.Engine,
		renders:  opts.Renders,
		handlers: opts.Handlers,
		history:  opts.History,
		intake:   opts.Intake,
		logPath:  opts.LogPath,
		logger:   logging.NewComponentLogger(opts.Logger, "daemon"),
		lockPath: opts.Config.LockPath(),
		lock:     flock.New(opts.Config.LockPath()),
	}
	d.api = api.NewServer(opts.Config.API.Bind, api.NewRouter(d.apiDeps()), opts.Logger)
	return d, nil
}

func (d *Daemon) apiDeps() api.Deps {
	routes := api.Deps{
		Workflows: d.engine,
		Renders:   d.renders,
		Status:    d.Status,
		Token:     d.cfg.API.Token,
		Logger:    d.logger,
	}
	if d.history != nil {
		routes.Archive = d.history
	}
	return routes
}

// Start acquires the lock and launches every background loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipturbo daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}
	d.cancel = cancel
	d.startedAt = time.Now()
	d.deps = preflight.CheckSystemDeps(runCtx, d.cfg)
	d.logMissingDeps()

	d.goLoop(func() { d.logPreflight(runCtx) })
	d.goLoop(func() { d.renders.Run(runCtx) })
	d.goLoop(func() { d.engine.RunSweeper(runCtx, d.cfg.SweepInterval(), d.cfg.WorkflowRetention()) })
	if d.history != nil {
		d.goLoop(func() { d.runHousekeeping(runCtx) })
	}
	if d.intake != nil {
		d.goLoop(func() {
			if err := d.intake.Run(runCtx); err != nil {
				logging.ErrorWithContext(d.logger, "intake consumer stopped", "intake_stopped", logging.Error(err))
			}
		})
	}

	d.running.Store(true)
	d.logger.Info("clipturbo daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.Addr()),
		logging.Int("render_limit", d.renders.Limit()),
		logging.Bool("intake", d.intake != nil),
	)
	return nil
}

func (d *Daemon) goLoop(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

// Stop cancels active workflows, stops every loop and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		d.api.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := d.engine.Shutdown(ctx); err != nil {
			d.logger.Warn("workflow shutdown incomplete", logging.Error(err))
		}
		d.renders.Shutdown()
		d.wg.Wait()

		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
		d.running.Store(false)
		d.logger.Info("clipturbo daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	})
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not run.
func (d *Daemon) Running() bool { return d.running.Load() }

// APIAddr returns the address the HTTP API is bound to.
func (d *Daemon) APIAddr() string { return d.api.Addr() }

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string { return d.logPath }

// Status returns the current daemon status in API form.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	snap := d.renders.Snapshot()
	status := api.DaemonStatus{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		HistoryDBPath:   d.cfg.HistoryPath(),
		LockFilePath:    d.lockPath,
		LogPath:         d.logPath,
		ActiveWorkflows: len(d.engine.ListActive()),
		QueuedJobs:      snap.Queued,
		RunningJobs:     snap.Running,
		RenderLimit:     snap.Limit,
		IntakeEnabled:   d.intake != nil,
		StepHealth:      []api.StepHealth{},
		Dependencies:    make([]api.DependencyStatus, 0, len(d.deps)),
	}
	if !d.startedAt.IsZero() {
		status.StartedAt = d.startedAt.UTC().Format(time.RFC3339)
	}
	for _, h := range steps.CheckHealth(ctx, d.handlers) {
		status.StepHealth = append(status.StepHealth, api.StepHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	if d.history != nil {
		if stats, err := d.history.Stats(ctx); err == nil {
			status.History = make(map[string]int, len(stats))
			for state, count := range stats {
				status.History[string(state)] = count
			}
		} else {
			d.logger.Debug("history stats unavailable", logging.Error(err))
		}
	}
	for _, dep := range d.deps {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return status
}

// runHousekeeping prunes the archive and, once every finished render job is
// archived and no workflow could still be reading it, drops finished jobs
// from the supervisor.
func (d *Daemon) runHousekeeping(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		if d.cfg.HistoryRetention() > 0 {
			d.prune(ctx)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if len(d.engine.ListActive()) == 0 {
			if cleared := d.renders.ClearCompleted(); cleared > 0 {
				d.logger.Debug("cleared finished render jobs", logging.Int("cleared", cleared))
			}
		}
	}
}

func (d *Daemon) prune(ctx context.Context) {
	removed, err := d.history.Prune(ctx, d.cfg.HistoryRetention())
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("history prune failed", logging.Error(err))
		}
		return
	}
	if removed > 0 {
		d.logger.Info("history pruned",
			logging.String(logging.FieldEventType, "history_pruned"),
			logging.Int64("removed", removed),
		)
	}
}

func (d *Daemon) logMissingDeps() {
	for _, missing := range deps.Missing(d.deps) {
		logging.WarnWithContext(d.logger, "required dependency unavailable", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("command", missing.Command),
			logging.String(logging.FieldErrorHint, missing.Detail),
			logging.String(logging.FieldImpact, "render jobs will fail until it is installed"),
		)
	}
}

func (d *Daemon) logPreflight(ctx context.Context) {
	for _, failed := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String(logging.FieldErrorHint, failed.Detail),
		)
	}
}
