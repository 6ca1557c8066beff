package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Command is a fully resolved process invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
}

// Process is a started render process.
type Process interface {
	// Exited reports whether the process has finished and, if so, its exit
	// code and captured stderr.
	Exited() (done bool, exitCode int, stderr string)
	// Terminate asks the process (and its children) to stop.
	Terminate() error
}

// Launcher starts render processes.
type Launcher interface {
	Launch(ctx context.Context, cmd Command) (Process, error)
}

// ExecLauncher starts real OS processes in their own process group.
type ExecLauncher struct{}

// Launch starts cmd and reaps it in the background.
func (ExecLauncher) Launch(_ context.Context, cmd Command) (Process, error) {
	// The process outlives the submitting request, so it is not bound to ctx.
	c := exec.Command(cmd.Binary, cmd.Args...) //nolint:gosec
	c.Dir = cmd.Dir
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	proc := &execProcess{cmd: c, done: make(chan struct{})}
	c.Stderr = &proc.stderr
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Binary, err)
	}
	go proc.reap()
	return proc, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stderr bytes.Buffer
	done   chan struct{}

	mu       sync.Mutex
	exitCode int
}

func (p *execProcess) reap() {
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}
	p.mu.Lock()
	p.exitCode = code
	p.mu.Unlock()
	close(p.done)
}

func (p *execProcess) Exited() (bool, int, string) {
	select {
	case <-p.done:
	default:
		return false, 0, ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return true, p.exitCode, p.stderr.String()
}

func (p *execProcess) Terminate() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	pid := p.cmd.Process.Pid
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal process group %d: %w", pid, err)
	}
	return nil
}
