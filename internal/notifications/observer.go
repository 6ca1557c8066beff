package notifications

import (
	"context"
	"log/slog"
	"time"

	"clipturbo/internal/logging"
	"clipturbo/internal/services"
	"clipturbo/internal/workflow"
)

// Observer publishes an event for each finished workflow.
func Observer(svc Service, logger *slog.Logger) workflow.Observer {
	logger = logging.NewComponentLogger(logger, "notifications")
	return workflow.ObserverFunc(func(ctx context.Context, snap workflow.Snapshot) {
		if svc == nil {
			return
		}
		event, payload := eventFor(snap)
		if event == "" {
			return
		}
		if err := svc.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(logging.WithContext(services.WithWorkflowID(ctx, snap.ID), logger),
				"notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.Error(err),
			)
		}
	})
}

func eventFor(snap workflow.Snapshot) (Event, Payload) {
	payload := Payload{
		"workflowID": snap.ID,
		"title":      snap.Title,
		"duration":   snap.TotalDuration.Round(time.Second).String(),
	}
	switch snap.State {
	case workflow.StateCompleted:
		if len(snap.OutputFiles) > 0 {
			payload["outputFile"] = snap.OutputFiles[0]
		}
		return EventWorkflowCompleted, payload
	case workflow.StateFailed:
		payload["error"] = snap.Error
		return EventWorkflowFailed, payload
	case workflow.StateCancelled:
		return EventWorkflowCancelled, payload
	default:
		return "", nil
	}
}
