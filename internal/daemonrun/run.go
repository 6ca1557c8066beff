package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"clipturbo/internal/config"
	"clipturbo/internal/content"
	"clipturbo/internal/daemon"
	"clipturbo/internal/history"
	"clipturbo/internal/intake"
	"clipturbo/internal/logging"
	"clipturbo/internal/notifications"
	"clipturbo/internal/render"
	"clipturbo/internal/steps"
	"clipturbo/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the clipturbo daemon and blocks until SIGINT, SIGTERM or the end
// of cmdCtx.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("clipturbo-%s.log", runID))
	logger, err := logging.NewFromConfig(cfg, logPath, logging.Options{
		Level:       opts.LogLevel,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update clipturbo.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "clipturbo-*.log", logPath)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}

	renders, err := render.NewFromConfig(cfg, logger, store.RenderRecorder(logger))
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create render supervisor: %w", err)
	}

	handlers := buildHandlers(cfg, renders, logger)
	notifier := notifications.NewService(cfg)
	engine, err := workflow.NewEngine(workflow.Options{
		Handlers: handlers,
		Renders:  renders,
		Observers: []workflow.Observer{
			store.Observer(logger),
			notifications.Observer(notifier, logger),
		},
		Logger: logger,
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create workflow engine: %w", err)
	}

	var consumer *intake.Consumer
	if cfg.Intake.Enabled {
		rdb := intake.NewClient(cfg)
		defer rdb.Close()
		consumer = intake.NewConsumer(intake.NewRedisQueue(rdb, cfg.Intake.List), engine, logger)
	}

	d, err := daemon.New(daemon.Options{
		Config:   cfg,
		Engine:   engine,
		Renders:  renders,
		Handlers: handlers,
		History:  store,
		Intake:   consumer,
		LogPath:  logPath,
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check the lock file, api.bind and state directory access"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("clipturbo daemon shutting down")
	return nil
}

func buildHandlers(cfg *config.Config, renders *render.Supervisor, logger *slog.Logger) []workflow.Handler {
	defaults := content.Defaults{
		Language: cfg.Content.DefaultLanguage,
		Style:    cfg.Content.DefaultStyle,
		Duration: cfg.Content.DefaultDuration,
	}
	client := content.NewLLMClient(content.LLMConfig{
		APIKey:         cfg.Content.APIKey,
		BaseURL:        cfg.Content.BaseURL,
		Model:          cfg.Content.Model,
		Referer:        cfg.Content.Referer,
		Title:          cfg.Content.Title,
		TimeoutSeconds: cfg.Content.TimeoutSeconds,
	})
	return steps.Handlers(steps.Dependencies{
		Generator: content.NewLLMGenerator(client, defaults),
		Defaults:  defaults,
		Renders:   renders,
		OutputDir: cfg.Paths.OutputDir,
		Logger:    logger,
	})
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "clipturbo.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
