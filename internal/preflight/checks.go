package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipturbo/internal/config"
	"clipturbo/internal/deps"
	"clipturbo/internal/intake"
)

// CheckLLM verifies that script generation is configured and that the
// endpoint answers HTTP. Any response counts as reachable; the key itself is
// only exercised by a real generation.
func CheckLLM(ctx context.Context, cfg config.Content) Result {
	const name = "Script LLM"
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing (topic submissions will fail)"}
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid base url (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("endpoint unhealthy (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (model %s)", cfg.Model)}
}

// CheckRedis pings the intake Redis server.
func CheckRedis(ctx context.Context, cfg *config.Config) Result {
	const name = "Redis intake"
	if strings.TrimSpace(cfg.Intake.RedisAddr) == "" {
		return Result{Name: name, Detail: "missing redis_addr"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb := intake.NewClient(cfg)
	defer rdb.Close()
	queue := intake.NewRedisQueue(rdb, cfg.Intake.List)
	if err := queue.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", cfg.Intake.RedisAddr, summarizeNetError(err))}
	}
	depth, err := queue.Depth(checkCtx)
	if err != nil {
		return Result{Name: name, Passed: true, Detail: cfg.Intake.RedisAddr}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d pending)", cfg.Intake.RedisAddr, depth)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries rendering needs. Both the
// daemon and the CLI use this list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Manim",
			Command:     cfg.Render.ManimBinary,
			Description: "Required for rendering scenes",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "LaTeX",
			Command:     "latex",
			Description: "Needed by manim for Tex and MathTex text",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
