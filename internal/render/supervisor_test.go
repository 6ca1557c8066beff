package render_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"clipturbo/internal/render"
	"clipturbo/internal/scene"
)

type fakeProcess struct {
	mu         sync.Mutex
	done       bool
	code       int
	stderr     string
	terminated bool
}

func (p *fakeProcess) Exited() (bool, int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.code, p.stderr
}

func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated = true
	p.done = true
	p.code = -1
	return nil
}

func (p *fakeProcess) exit(code int, stderr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = true
	p.code = code
	p.stderr = stderr
}

type fakeLauncher struct {
	mu        sync.Mutex
	commands  []render.Command
	procs     map[string]*fakeProcess
	peak      int
	failWith  error
	autoExit  bool
	writeFile bool
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{procs: make(map[string]*fakeProcess)}
}

func (l *fakeLauncher) Launch(_ context.Context, cmd render.Command) (render.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.commands = append(l.commands, cmd)
	output := outputArg(cmd.Args)
	if l.writeFile {
		_ = os.WriteFile(output, []byte("video-bytes"), 0o644)
	}
	proc := &fakeProcess{}
	if l.autoExit {
		proc.done = true
	}
	l.procs[jobIDFromOutput(output)] = proc
	active := 0
	for _, p := range l.procs {
		if done, _, _ := p.Exited(); !done {
			active++
		}
	}
	l.peak = max(l.peak, active)
	return proc, nil
}

func (l *fakeLauncher) proc(id string) *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[id]
}

func (l *fakeLauncher) launched() []render.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.commands)
}

func outputArg(args []string) string {
	for _, arg := range args {
		if value, ok := strings.CutPrefix(arg, "--output_file="); ok {
			return value
		}
	}
	return ""
}

func jobIDFromOutput(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func newSupervisor(t *testing.T, launcher render.Launcher, limit int) (*render.Supervisor, string, string) {
	t.Helper()
	base := t.TempDir()
	tmp := filepath.Join(base, "tmp")
	out := filepath.Join(base, "out")
	sup, err := render.New(render.Options{
		OutputDir:     out,
		TempDir:       tmp,
		MaxConcurrent: limit,
		Tick:          5 * time.Millisecond,
		Launcher:      launcher,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sup, tmp, out
}

func startLoop(t *testing.T, sup *render.Supervisor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go sup.Run(ctx)
	t.Cleanup(cancel)
}

func renderable() *scene.Renderable {
	return &scene.Renderable{TemplateID: scene.SimpleText, SceneClass: scene.SceneClass, Source: "from manim import *\n"}
}

func waitResult(t *testing.T, sup *render.Supervisor, id string) render.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := sup.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait(%s): %v", id, err)
	}
	return res
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSubmitWritesScriptAndRendersSuccessfully(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.autoExit = true
	launcher.writeFile = true
	sup, tmp, out := newSupervisor(t, launcher, 2)

	id, err := sup.Submit(context.Background(), renderable(), render.Config{Quality: render.QualityHigh, BackgroundColor: "#000000"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.HasPrefix(id, "render_") {
		t.Fatalf("unexpected id %q", id)
	}
	script := filepath.Join(tmp, "scene_"+id+".py")
	if _, err := os.Stat(script); err != nil {
		t.Fatalf("expected scene script: %v", err)
	}
	if st, ok := sup.Status(id); !ok || st.State != render.StatePending {
		t.Fatalf("expected pending status, got %+v", st)
	}

	startLoop(t, sup)
	res := waitResult(t, sup, id)
	if !res.Success || res.State != render.StateCompleted {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.OutputFile != filepath.Join(out, id+".mp4") {
		t.Fatalf("unexpected output %q", res.OutputFile)
	}
	if res.FileSize != int64(len("video-bytes")) || res.Width != 1920 || res.Height != 1080 || res.FrameCount != 0 {
		t.Fatalf("unexpected result metadata %+v", res)
	}
	if _, err := os.Stat(script); !os.IsNotExist(err) {
		t.Fatalf("expected script cleanup, stat err=%v", err)
	}

	cmds := launcher.launched()
	if len(cmds) != 1 {
		t.Fatalf("expected one launch, got %d", len(cmds))
	}
	want := []string{script, "RenderScene", "--quality=high_quality", "--resolution=1920,1080", "--frame_rate=30", "--output_file=" + res.OutputFile, "--background_color=#000000"}
	if !slices.Equal(cmds[0].Args, want) {
		t.Fatalf("unexpected args\n got %v\nwant %v", cmds[0].Args, want)
	}
	if cmds[0].Binary != "manim" || cmds[0].Dir != tmp {
		t.Fatalf("unexpected command %+v", cmds[0])
	}
}

func TestExplicitGeometryOverridesPreset(t *testing.T) {
	cfg := render.Config{Quality: render.QualityLow, Width: 1080, Height: 1920, FrameRate: 50, ExtraFlags: []string{"--disable_caching"}}.Resolved(render.QualityMedium, "mp4")
	args := cfg.Args("s.py", "RenderScene", "o.mp4")
	want := []string{"s.py", "RenderScene", "--quality=low_quality", "--resolution=1080,1920", "--frame_rate=50", "--output_file=o.mp4", "--disable_caching"}
	if !slices.Equal(args, want) {
		t.Fatalf("unexpected args %v", args)
	}
	def := render.Config{}.Resolved(render.QualityProduction, ".MOV")
	if def.Quality != render.QualityProduction || def.FrameRate != 60 || def.Format != "mov" {
		t.Fatalf("unexpected defaults %+v", def)
	}
}

func TestDefaultFormatIsNormalized(t *testing.T) {
	base := t.TempDir()
	out := filepath.Join(base, "out")
	sup, err := render.New(render.Options{
		OutputDir:     out,
		TempDir:       filepath.Join(base, "tmp"),
		DefaultFormat: ".MOV",
		Launcher:      newFakeLauncher(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, err := sup.Submit(context.Background(), renderable(), render.Config{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	st, ok := sup.Status(id)
	if !ok {
		t.Fatalf("expected status for %s", id)
	}
	if st.Config.Format != "mov" || st.OutputFile != filepath.Join(out, id+".mov") {
		t.Fatalf("unexpected format %q output %q", st.Config.Format, st.OutputFile)
	}
}

func TestParseQuality(t *testing.T) {
	if q, err := render.ParseQuality("HIGH_quality"); err != nil || q != render.QualityHigh {
		t.Fatalf("ParseQuality = %q, %v", q, err)
	}
	if _, err := render.ParseQuality("ultra"); err == nil {
		t.Fatal("expected error for unknown quality")
	}
}

func TestDispatchRespectsLimitAndFIFO(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.writeFile = true
	sup, _, _ := newSupervisor(t, launcher, 1)

	var ids []string
	for range 3 {
		id, err := sup.Submit(context.Background(), renderable(), render.Config{})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, id)
	}
	startLoop(t, sup)

	for i, id := range ids {
		waitFor(t, func() bool { return launcher.proc(id) != nil })
		snap := sup.Snapshot()
		if snap.Running != 1 || snap.Limit != 1 {
			t.Fatalf("expected exactly one running job, got %+v", snap)
		}
		if snap.Queued != len(ids)-i-1 {
			t.Fatalf("expected %d queued, got %d", len(ids)-i-1, snap.Queued)
		}
		launcher.proc(id).exit(0, "")
		waitResult(t, sup, id)
	}

	cmds := launcher.launched()
	for i, cmd := range cmds {
		if got := jobIDFromOutput(outputArg(cmd.Args)); got != ids[i] {
			t.Fatalf("launch %d: got %s want %s", i, got, ids[i])
		}
	}
	if launcher.peak != 1 {
		t.Fatalf("expected peak concurrency 1, got %d", launcher.peak)
	}
	if snap := sup.Snapshot(); snap.Completed != 3 {
		t.Fatalf("expected 3 completed, got %+v", snap)
	}
}

func TestFailureCarriesStderrOrExitCode(t *testing.T) {
	launcher := newFakeLauncher()
	sup, _, _ := newSupervisor(t, launcher, 2)
	first, _ := sup.Submit(context.Background(), renderable(), render.Config{})
	second, _ := sup.Submit(context.Background(), renderable(), render.Config{})
	startLoop(t, sup)

	waitFor(t, func() bool { return launcher.proc(first) != nil && launcher.proc(second) != nil })
	launcher.proc(first).exit(1, "  Traceback: boom \n")
	launcher.proc(second).exit(2, "")

	if res := waitResult(t, sup, first); res.Success || res.Error != "Traceback: boom" {
		t.Fatalf("unexpected first result %+v", res)
	}
	if res := waitResult(t, sup, second); res.Error != "render process exited with code 2" {
		t.Fatalf("unexpected second result %+v", res)
	}
}

func TestZeroExitWithoutOutputFails(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.autoExit = true
	sup, _, _ := newSupervisor(t, launcher, 1)
	id, _ := sup.Submit(context.Background(), renderable(), render.Config{})
	startLoop(t, sup)
	res := waitResult(t, sup, id)
	if res.State != render.StateFailed || res.Error != "output file missing" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLaunchFailureFinalizesImmediately(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.failWith = errors.New("exec: manim not found")
	var mu sync.Mutex
	var seen []render.Result
	base := t.TempDir()
	sup, err := render.New(render.Options{
		OutputDir: filepath.Join(base, "out"),
		TempDir:   filepath.Join(base, "tmp"),
		Tick:      5 * time.Millisecond,
		Launcher:  launcher,
		OnResult: func(r render.Result) {
			mu.Lock()
			seen = append(seen, r)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, _ := sup.Submit(context.Background(), renderable(), render.Config{})
	startLoop(t, sup)
	res := waitResult(t, sup, id)
	if res.State != render.StateFailed || !strings.Contains(res.Error, "manim not found") {
		t.Fatalf("unexpected result %+v", res)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0].JobID != id {
		t.Fatalf("expected one OnResult callback, got %+v", seen)
	}
}

func TestCancelQueuedAndRunning(t *testing.T) {
	launcher := newFakeLauncher()
	sup, tmp, _ := newSupervisor(t, launcher, 1)
	running, _ := sup.Submit(context.Background(), renderable(), render.Config{})
	queued, _ := sup.Submit(context.Background(), renderable(), render.Config{})
	startLoop(t, sup)
	waitFor(t, func() bool { return launcher.proc(running) != nil })

	if !sup.Cancel(queued) {
		t.Fatal("expected queued cancel to succeed")
	}
	res := waitResult(t, sup, queued)
	if res.State != render.StateCancelled {
		t.Fatalf("expected cancelled, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(tmp, "scene_"+queued+".py")); !os.IsNotExist(err) {
		t.Fatalf("expected queued script removed, err=%v", err)
	}

	if !sup.Cancel(running) {
		t.Fatal("expected running cancel to succeed")
	}
	if st, _ := sup.Status(running); st.State != render.StateCancelled {
		t.Fatalf("expected running job marked cancelled, got %s", st.State)
	}
	res = waitResult(t, sup, running)
	if res.State != render.StateCancelled {
		t.Fatalf("expected cancelled result, got %+v", res)
	}
	if !launcher.proc(running).terminated {
		t.Fatal("expected process to be terminated")
	}
	if sup.Cancel(running) {
		t.Fatal("cancel of finished job should return false")
	}
	if sup.Cancel("render_missing") {
		t.Fatal("cancel of unknown job should return false")
	}
}

func TestCleanupRemovesJobScratchFiles(t *testing.T) {
	launcher := newFakeLauncher()
	sup, tmp, _ := newSupervisor(t, launcher, 1)
	id, _ := sup.Submit(context.Background(), renderable(), render.Config{})
	leftover := filepath.Join(tmp, "partial_"+id+"_movie.mp4")
	if err := os.WriteFile(leftover, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(tmp, "keep.txt")
	if err := os.WriteFile(unrelated, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	startLoop(t, sup)
	waitFor(t, func() bool { return launcher.proc(id) != nil })
	launcher.proc(id).exit(1, "fail")
	waitResult(t, sup, id)
	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Fatalf("expected leftover removed, err=%v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("unrelated file should remain: %v", err)
	}
}

func TestPreviewDefaults(t *testing.T) {
	launcher := newFakeLauncher()
	sup, _, _ := newSupervisor(t, launcher, 1)
	id, err := sup.Preview(context.Background(), renderable(), nil)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !strings.HasPrefix(id, "preview_") {
		t.Fatalf("unexpected preview id %q", id)
	}
	st, _ := sup.Status(id)
	if st.Config.Quality != render.QualityLow || !st.Config.Preview || st.Config.Width != 640 || st.Config.Height != 360 {
		t.Fatalf("unexpected preview config %+v", st.Config)
	}
}

func TestClearCompletedKeepsUncollectedResults(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.autoExit = true
	launcher.writeFile = true
	sup, _, _ := newSupervisor(t, launcher, 1)
	id, err := sup.Submit(context.Background(), renderable(), render.Config{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	done, ok := sup.Done(id)
	if !ok {
		t.Fatal("expected done channel")
	}
	startLoop(t, sup)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job never finished")
	}

	if n := sup.ClearCompleted(); n != 0 {
		t.Fatalf("awaited job must survive clearing, removed %d", n)
	}
	res := waitResult(t, sup, id)
	if res.State != render.StateCompleted {
		t.Fatalf("expected completed result, got %+v", res)
	}
	if n := sup.ClearCompleted(); n != 1 {
		t.Fatalf("collected job should be cleared, removed %d", n)
	}
}

func TestClearCompletedAndShutdown(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.autoExit = true
	sup, tmp, _ := newSupervisor(t, launcher, 1)
	done, _ := sup.Submit(context.Background(), renderable(), render.Config{})
	startLoop(t, sup)
	waitResult(t, sup, done)

	if n := sup.ClearCompleted(); n != 1 {
		t.Fatalf("expected one cleared job, got %d", n)
	}
	if _, ok := sup.Status(done); ok {
		t.Fatal("expected cleared job to be forgotten")
	}

	launcher.mu.Lock()
	launcher.autoExit = false
	launcher.mu.Unlock()
	pending, _ := sup.Submit(context.Background(), renderable(), render.Config{})
	waitFor(t, func() bool { return launcher.proc(pending) != nil })
	sup.Shutdown()

	res := waitResult(t, sup, pending)
	if res.State != render.StateCancelled {
		t.Fatalf("expected cancelled on shutdown, got %+v", res)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatalf("expected scratch dir removed, err=%v", err)
	}
	if _, err := sup.Submit(context.Background(), renderable(), render.Config{}); err == nil {
		t.Fatal("expected submit after shutdown to fail")
	}
}

func TestSubmitRejectsDuplicateAndEmpty(t *testing.T) {
	sup, _, _ := newSupervisor(t, newFakeLauncher(), 1)
	if _, err := sup.Submit(context.Background(), &scene.Renderable{}, render.Config{}); err == nil {
		t.Fatal("expected empty renderable to be rejected")
	}
	if _, err := sup.Submit(context.Background(), renderable(), render.Config{}, render.WithJobID("job-1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := sup.Submit(context.Background(), renderable(), render.Config{}, render.WithJobID("job-1")); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestResources(t *testing.T) {
	sup, _, out := newSupervisor(t, newFakeLauncher(), 3)
	res, err := sup.Resources()
	if err != nil {
		t.Fatalf("Resources: %v", err)
	}
	if res.OutputDir != out || res.Limit != 3 || res.DiskTotal == 0 {
		t.Fatalf("unexpected resources %+v", res)
	}
}
