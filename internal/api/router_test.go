package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"clipturbo/internal/api"
	"clipturbo/internal/content"
	"clipturbo/internal/history"
	"clipturbo/internal/render"
	"clipturbo/internal/services"
	"clipturbo/internal/testsupport"
	"clipturbo/internal/workflow"
)

type fakeRenders struct {
	mu        sync.Mutex
	jobs      map[string]render.JobStatus
	cancelled []string
}

func (f *fakeRenders) Status(id string) (render.JobStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.jobs[id]
	return st, ok
}

func (f *fakeRenders) Cancel(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.jobs[id]
	if !ok || st.State.Terminal() {
		return false
	}
	st.State = render.StateCancelled
	f.jobs[id] = st
	f.cancelled = append(f.cancelled, id)
	return true
}

func (f *fakeRenders) Snapshot() render.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := render.Snapshot{Limit: 2}
	for _, st := range f.jobs {
		switch st.State {
		case render.StatePending:
			snap.Queued++
		case render.StateRunning:
			snap.Running++
		default:
			snap.Completed++
		}
		snap.Jobs = append(snap.Jobs, st)
	}
	return snap
}

func (f *fakeRenders) Resources() (render.Resources, error) {
	return render.Resources{DiskFreeBytes: 10, DiskTotal: 20, Load: [3]float64{0.5, 0.25, 0.125}, Limit: 2}, nil
}

type fixture struct {
	server  *httptest.Server
	engine  *workflow.Engine
	renders *fakeRenders
	archive *history.Store
	release chan struct{}
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	release := make(chan struct{})
	seen := map[workflow.Kind]bool{}
	var handlers []workflow.Handler
	for _, spec := range append(workflow.AIPath(), workflow.UserPath()...) {
		if seen[spec.Kind] {
			continue
		}
		seen[spec.Kind] = true
		fn := func(context.Context, *workflow.Context) (any, error) { return nil, nil }
		if spec.Kind == workflow.KindVideoRendering {
			fn = func(ctx context.Context, _ *workflow.Context) (any, error) {
				select {
				case <-release:
					return nil, nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
		handlers = append(handlers, workflow.HandlerFunc{StepKind: spec.Kind, Fn: fn})
	}
	engine, err := workflow.NewEngine(workflow.Options{Handlers: handlers})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	})

	renders := &fakeRenders{jobs: map[string]render.JobStatus{
		"render_running": {JobID: "render_running", State: render.StateRunning, Progress: 40, Config: render.Config{Quality: render.QualityHigh, Width: 1080, Height: 1920, FrameRate: 30}},
		"render_done": {JobID: "render_done", State: render.StateCompleted, Progress: 100, Result: &render.Result{
			JobID: "render_done", Success: true, OutputFile: "/out/render_done.mp4", Duration: 3 * time.Second,
		}},
	}}
	archive := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))

	router := api.NewRouter(api.Deps{
		Workflows: engine,
		Renders:   renders,
		Archive:   archive,
		Status: func(context.Context) api.DaemonStatus {
			return api.DaemonStatus{Running: true, PID: 42, ActiveWorkflows: len(engine.ListActive())}
		},
		Token: token,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &fixture{server: server, engine: engine, renders: renders, archive: archive, release: release}
}

func (f *fixture) client(token string) *api.Client {
	return api.NewClient(f.server.URL, token)
}

func TestCreateWorkflowAndFetchStatus(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	client := f.client("")

	id, err := client.CreateWorkflow(ctx, content.Submission{Topic: "octopus facts"})
	if err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	if !strings.HasPrefix(id, "workflow_") {
		t.Fatalf("unexpected id %q", id)
	}

	wf, err := client.Workflow(ctx, id)
	if err != nil {
		t.Fatalf("Workflow: %v", err)
	}
	if wf.Topic != "octopus facts" || len(wf.Steps) != len(workflow.AIPath()) {
		t.Fatalf("unexpected workflow %+v", wf)
	}

	list, err := client.ListWorkflows(ctx)
	if err != nil {
		t.Fatalf("ListWorkflows: %v", err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("unexpected list %+v", list)
	}

	close(f.release)
	snap, err := f.engine.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if snap.State != workflow.StateCompleted {
		t.Fatalf("expected completed, got %s (%s)", snap.State, snap.Error)
	}
	wf, err = client.Workflow(ctx, id)
	if err != nil {
		t.Fatalf("Workflow after completion: %v", err)
	}
	if wf.State != "completed" || wf.Progress != 100 {
		t.Fatalf("unexpected final workflow %+v", wf)
	}
}

func TestCreateWorkflowHonoursSuppliedID(t *testing.T) {
	f := newFixture(t, "")
	id, err := f.client("").CreateWorkflow(context.Background(), content.Submission{
		WorkflowID: "workflow_custom",
		Content:    &content.UserContent{Title: "Tides", Script: "The moon pulls the sea."},
	})
	if err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	if id != "workflow_custom" {
		t.Fatalf("expected supplied id, got %q", id)
	}
}

func TestCreateWorkflowRejectsInvalidBody(t *testing.T) {
	f := newFixture(t, "")
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"both shapes", `{"topic":"a","content":{"script":"b"}}`},
		{"neither shape", `{"requirements":{"quality":"high"}}`},
		{"unknown field", `{"topic":"a","colour":"red"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(f.server.URL+"/api/workflows", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var body api.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Kind != "validation_error" || body.Error == "" {
				t.Fatalf("unexpected error body %+v", body)
			}
		})
	}
}

func TestUnknownWorkflowIsNotFound(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	client := f.client("")

	if _, err := client.Workflow(ctx, "workflow_missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.CancelWorkflow(ctx, "workflow_missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on cancel, got %v", err)
	}
}

func TestCancelWorkflow(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	client := f.client("")

	id, err := client.CreateWorkflow(ctx, content.Submission{Topic: "volcanoes"})
	if err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	cancelled, err := client.CancelWorkflow(ctx, id)
	if err != nil {
		t.Fatalf("CancelWorkflow: %v", err)
	}
	if !cancelled {
		t.Fatal("expected cancel to take effect")
	}
	snap, err := f.engine.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if snap.State != workflow.StateCancelled {
		t.Fatalf("expected cancelled, got %s", snap.State)
	}
	again, err := client.CancelWorkflow(ctx, id)
	if err != nil {
		t.Fatalf("second CancelWorkflow: %v", err)
	}
	if again {
		t.Fatal("expected second cancel to be a no-op")
	}
}

func TestArchivedWorkflowFallback(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	ended := time.Now().UTC()
	snap := workflow.Snapshot{
		ID:          "workflow_old",
		State:       workflow.StateCompleted,
		Input:       workflow.Input{Topic: "glaciers"},
		Title:       "Ice",
		OutputFiles: []string{"/out/ice.mp4"},
		CreatedAt:   ended.Add(-time.Minute),
		StartedAt:   ended.Add(-time.Minute),
		EndedAt:     ended,
	}
	if err := f.archive.RecordWorkflow(ctx, snap); err != nil {
		t.Fatalf("RecordWorkflow: %v", err)
	}

	client := f.client("")
	wf, err := client.Workflow(ctx, "workflow_old")
	if err != nil {
		t.Fatalf("Workflow: %v", err)
	}
	if !wf.Archived || wf.Title != "Ice" || len(wf.OutputFiles) != 1 {
		t.Fatalf("unexpected archived workflow %+v", wf)
	}

	hist, err := client.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 1 || hist[0].ID != "workflow_old" {
		t.Fatalf("unexpected history %+v", hist)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	f := newFixture(t, "")
	resp, err := http.Get(f.server.URL + "/api/history?limit=zero")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestJobEndpoints(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	client := f.client("")

	job, err := client.Job(ctx, "render_done")
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if job.State != "completed" || job.Result == nil || job.Result.OutputFile != "/out/render_done.mp4" || job.Result.DurationMS != 3000 {
		t.Fatalf("unexpected job %+v", job)
	}
	if _, err := client.Job(ctx, "render_missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	cancelled, err := client.CancelJob(ctx, "render_running")
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if !cancelled {
		t.Fatal("expected running job to cancel")
	}
	cancelled, err = client.CancelJob(ctx, "render_done")
	if err != nil {
		t.Fatalf("CancelJob terminal: %v", err)
	}
	if cancelled {
		t.Fatal("expected terminal job cancel to be refused")
	}
}

func TestArchivedJobFallback(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	err := f.archive.RecordRender(ctx, render.Result{
		JobID:      "render_cleared",
		State:      render.StateCompleted,
		Success:    true,
		OutputFile: "/out/render_cleared.mp4",
		Width:      1920,
		Height:     1080,
		Duration:   2 * time.Second,
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordRender: %v", err)
	}

	job, err := f.client("").Job(ctx, "render_cleared")
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if !job.Archived || job.State != "completed" || job.Progress != 100 || job.Width != 1920 {
		t.Fatalf("unexpected archived job %+v", job)
	}
	if job.Result == nil || job.Result.OutputFile != "/out/render_cleared.mp4" {
		t.Fatalf("expected archived result, got %+v", job.Result)
	}
}

func TestQueueIncludesResources(t *testing.T) {
	f := newFixture(t, "")
	q, err := f.client("").Queue(context.Background())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if q.Running != 1 || q.Completed != 1 || q.Limit != 2 || len(q.Jobs) != 2 {
		t.Fatalf("unexpected queue %+v", q)
	}
	if q.Resources == nil || q.Resources.DiskTotalBytes != 20 || q.Resources.LoadAverage[0] != 0.5 {
		t.Fatalf("unexpected resources %+v", q.Resources)
	}
}

func TestStatusAndAuth(t *testing.T) {
	f := newFixture(t, "secret")
	ctx := context.Background()

	if _, err := f.client("").Status(ctx); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected unauthorized configuration error, got %v", err)
	}
	status, err := f.client("secret").Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID != 42 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	f := newFixture(t, "")
	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/status", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(api.RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(api.RequestIDHeader); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestServerStartStop(t *testing.T) {
	srv := api.NewServer("127.0.0.1:0", http.NotFoundHandler(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := srv.Addr()
	if addr == "" {
		t.Fatal("expected bound address")
	}
	resp, err := http.Get("http://" + addr + "/anything")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	srv.Stop()
}
