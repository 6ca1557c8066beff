package history

import (
	"context"
	"log/slog"

	"clipturbo/internal/logging"
	"clipturbo/internal/render"
	"clipturbo/internal/services"
	"clipturbo/internal/workflow"
)

// Observer archives every finished workflow. Failures are logged; they never
// affect the workflow outcome.
func (s *Store) Observer(logger *slog.Logger) workflow.Observer {
	logger = logging.NewComponentLogger(logger, "history")
	return workflow.ObserverFunc(func(ctx context.Context, snap workflow.Snapshot) {
		if err := s.RecordWorkflow(ctx, snap); err != nil {
			logging.WarnWithContext(logging.WithContext(services.WithWorkflowID(ctx, snap.ID), logger),
				"workflow archive failed", "history_write_failed",
				logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
				logging.String(logging.FieldImpact, "workflow will be missing from history"),
				logging.Error(err),
			)
		}
	})
}

// RenderRecorder returns a render supervisor result callback that archives
// each result.
func (s *Store) RenderRecorder(logger *slog.Logger) func(render.Result) {
	logger = logging.NewComponentLogger(logger, "history")
	return func(res render.Result) {
		if err := s.RecordRender(context.Background(), res); err != nil {
			logging.WarnWithContext(logger, "render archive failed", "history_write_failed",
				logging.String(logging.FieldJobID, res.JobID),
				logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
				logging.Error(err),
			)
		}
	}
}
