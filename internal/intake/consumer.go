package intake

import (
	"context"
	"log/slog"
	"time"

	"clipturbo/internal/content"
	"clipturbo/internal/logging"
	"clipturbo/internal/services"
	"clipturbo/internal/workflow"
)

// Popper yields raw submission payloads. An empty payload means nothing
// arrived before the popper's own timeout.
type Popper interface {
	Pop(ctx context.Context) (string, error)
}

// Creator starts workflows; satisfied by *workflow.Engine.
type Creator interface {
	Create(ctx context.Context, in workflow.Input, req content.Requirements, opts ...workflow.CreateOption) (string, error)
}

// Consumer drains a Popper into a Creator.
type Consumer struct {
	popper     Popper
	creator    Creator
	logger     *slog.Logger
	retryDelay time.Duration
}

// Option customizes a Consumer.
type Option func(*Consumer)

// WithRetryDelay sets the pause after a failed pop.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Consumer) { c.retryDelay = d }
}

// NewConsumer builds a consumer.
func NewConsumer(popper Popper, creator Creator, logger *slog.Logger, opts ...Option) *Consumer {
	c := &Consumer{
		popper:     popper,
		creator:    creator,
		logger:     logging.NewComponentLogger(logger, "intake"),
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run pops submissions until ctx ends.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("intake consumer started", logging.String(logging.FieldEventType, "intake_started"))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("intake consumer stopped")
			return nil
		default:
		}

		raw, err := c.popper.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("intake consumer stopped")
				return nil
			}
			logging.WarnWithContext(c.logger, "queue pop error, retrying", "intake_pop_failed",
				logging.String(logging.FieldErrorHint, "check intake.redis_addr and that redis is reachable"),
				logging.String(logging.FieldImpact, "queued submissions wait until redis recovers"),
				logging.Error(err),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}
		if raw == "" {
			continue
		}
		c.handle(ctx, raw)
	}
}

func (c *Consumer) handle(ctx context.Context, raw string) {
	sub, err := content.Parse([]byte(raw))
	if err != nil {
		logging.WarnWithContext(c.logger, "dropping malformed submission", "intake_payload_invalid",
			logging.String(logging.FieldErrorHint, "producers must push {topic} or {content} JSON documents"),
			logging.String(logging.FieldImpact, "submission discarded"),
			logging.Int("payload_bytes", len(raw)),
			logging.Error(err),
		)
		return
	}
	var opts []workflow.CreateOption
	if sub.WorkflowID != "" {
		opts = append(opts, workflow.WithID(sub.WorkflowID))
	}
	id, err := c.creator.Create(ctx, workflow.Input{Topic: sub.Topic, Content: sub.Content}, sub.Requirements, opts...)
	if err != nil {
		logging.WarnWithContext(c.logger, "submission rejected", "intake_create_failed",
			logging.String(logging.FieldErrorHint, services.Details(err).Message),
			logging.String(logging.FieldImpact, "submission discarded"),
			logging.String(logging.FieldWorkflowID, sub.WorkflowID),
			logging.Error(err),
		)
		return
	}
	logging.WithContext(services.WithWorkflowID(ctx, id), c.logger).Info("submission accepted",
		logging.String(logging.FieldEventType, "intake_accepted"),
	)
}
