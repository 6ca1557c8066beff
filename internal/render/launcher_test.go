package render_test

import (
	"context"
	"testing"
	"time"

	"clipturbo/internal/render"
)

func waitExit(t *testing.T, proc render.Process) (int, string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if done, code, stderr := proc.Exited(); done {
			return code, stderr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("process did not exit")
	return 0, ""
}

func TestExecLauncherCapturesExitCodeAndStderr(t *testing.T) {
	dir := t.TempDir()
	proc, err := render.ExecLauncher{}.Launch(context.Background(), render.Command{
		Binary: "/bin/sh",
		Args:   []string{"-c", "pwd >&2; exit 3"},
		Dir:    dir,
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	code, stderr := waitExit(t, proc)
	if code != 3 {
		t.Fatalf("expected exit 3, got %d", code)
	}
	if stderr == "" {
		t.Fatal("expected stderr to be captured")
	}
}

func TestExecLauncherTerminateSignalsGroup(t *testing.T) {
	proc, err := render.ExecLauncher{}.Launch(context.Background(), render.Command{
		Binary: "/bin/sh",
		Args:   []string{"-c", "sleep 30"},
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if done, _, _ := proc.Exited(); done {
		t.Fatal("process exited too early")
	}
	if err := proc.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if code, _ := waitExit(t, proc); code == 0 {
		t.Fatal("expected non-zero exit after SIGTERM")
	}
}

func TestExecLauncherMissingBinary(t *testing.T) {
	if _, err := (render.ExecLauncher{}).Launch(context.Background(), render.Command{Binary: "/nonexistent/manim"}); err == nil {
		t.Fatal("expected launch error")
	}
}
