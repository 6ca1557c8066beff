package daemon_test

import (
	"context"
	"os"
	"testing"
	"time"

	"clipturbo/internal/api"
	"clipturbo/internal/config"
	"clipturbo/internal/content"
	"clipturbo/internal/daemon"
	"clipturbo/internal/history"
	"clipturbo/internal/render"
	"clipturbo/internal/steps"
	"clipturbo/internal/testsupport"
	"clipturbo/internal/workflow"
)

const manimStub = `if [ "$1" = "--version" ]; then echo "Manim Community v0.19.0"; exit 0; fi
for arg in "$@"; do
  case "$arg" in
    --output_file=*) out="${arg#--output_file=}" ;;
  esac
done
[ -n "$out" ] && printf 'video' > "$out"
exit 0`

type harness struct {
	cfg     *config.Config
	daemon  *daemon.Daemon
	engine  *workflow.Engine
	history *history.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubScript("manim", manimStub),
		testsupport.WithRenderConcurrency(1),
	)
	store := testsupport.MustOpenHistory(t, cfg)

	renders, err := render.NewFromConfig(cfg, nil, store.RenderRecorder(nil))
	if err != nil {
		t.Fatalf("render.NewFromConfig: %v", err)
	}
	handlers := steps.Handlers(steps.Dependencies{
		Renders:      renders,
		OutputDir:    cfg.Paths.OutputDir,
		PollInterval: 10 * time.Millisecond,
	})
	engine, err := workflow.NewEngine(workflow.Options{
		Handlers:  handlers,
		Renders:   renders,
		Observers: []workflow.Observer{store.Observer(nil)},
	})
	if err != nil {
		t.Fatalf("workflow.NewEngine: %v", err)
	}
	d, err := daemon.New(daemon.Options{
		Config:   cfg,
		Engine:   engine,
		Renders:  renders,
		Handlers: handlers,
		History:  store,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return &harness{cfg: cfg, daemon: d, engine: engine, history: store}
}

func TestDaemonStartStop(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := h.daemon.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID != os.Getpid() || status.HistoryDBPath != h.cfg.HistoryPath() {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Dependencies) == 0 || !status.Dependencies[0].Available {
		t.Fatalf("expected stubbed manim to be available, got %+v", status.Dependencies)
	}

	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	h.daemon.Stop()
	if h.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	engine, err := workflow.NewEngine(workflow.Options{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	renders, err := render.NewFromConfig(h.cfg, nil, nil)
	if err != nil {
		t.Fatalf("render.NewFromConfig: %v", err)
	}
	other, err := daemon.New(daemon.Options{Config: h.cfg, Engine: engine, Renders: renders})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := other.Start(ctx); err == nil {
		other.Stop()
		t.Fatal("expected lock contention to fail the second daemon")
	}
}

func TestDaemonRunsWorkflowThroughAPI(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	client := api.NewClient(h.daemon.APIAddr(), "")
	id, err := client.CreateWorkflow(ctx, content.Submission{
		Content: &content.UserContent{Title: "Tides", Script: "The moon pulls the sea twice a day."},
	})
	if err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	snap, err := h.engine.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if snap.State != workflow.StateCompleted {
		t.Fatalf("expected completed workflow, got %s: %s", snap.State, snap.Error)
	}
	if len(snap.OutputFiles) == 0 {
		t.Fatal("expected output files")
	}

	job, err := client.Job(ctx, snap.RenderJobID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if job.State != string(render.StateCompleted) {
		t.Fatalf("unexpected job state %q", job.State)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec, err := h.history.GetWorkflow(ctx, id)
		if err != nil {
			t.Fatalf("GetWorkflow: %v", err)
		}
		if rec != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected workflow to be archived")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got := h.daemon.Status(ctx).History["completed"]; got != 1 {
		t.Fatalf("expected one completed workflow in history stats, got %d", got)
	}
}
