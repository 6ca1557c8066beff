package steps

import (
	"context"
	"log/slog"
	"strings"

	"clipturbo/internal/content"
	"clipturbo/internal/logging"
	"clipturbo/internal/services"
	"clipturbo/internal/workflow"
)

// ContentResult is recorded on content steps.
type ContentResult struct {
	Title            string `json:"title"`
	Language         string `json:"language"`
	TargetDuration   int    `json:"target_duration"`
	EstimatedSeconds int    `json:"estimated_seconds"`
}

func contentResult(vc *content.VideoContent) ContentResult {
	return ContentResult{
		Title:            vc.Title,
		Language:         vc.Language,
		TargetDuration:   vc.TargetDuration,
		EstimatedSeconds: content.EstimateDuration(vc.Script),
	}
}

type contentGeneration struct {
	generator content.Generator
	logger    *slog.Logger
}

func (h *contentGeneration) Kind() workflow.Kind { return workflow.KindContentGeneration }

func (h *contentGeneration) Access() ([]workflow.Field, []workflow.Field) {
	return []workflow.Field{workflow.FieldInput, workflow.FieldRequirements}, []workflow.Field{workflow.FieldContent}
}

func (h *contentGeneration) Run(ctx context.Context, wc *workflow.Context) (any, error) {
	topic := strings.TrimSpace(wc.Input().Topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, "content_generation", "validate input", "topic is required", nil)
	}
	if h.generator == nil {
		return nil, services.Wrap(services.ErrConfiguration, "content_generation", "generate", "no content generator configured", nil)
	}
	logger := logging.WithContext(ctx, h.logger)
	logger.Info("generating content", logging.String("topic", topic))
	vc, err := h.generator.Generate(ctx, topic, wc.Requirements())
	if err != nil {
		return nil, err
	}
	wc.SetContent(vc)
	logger.Info("content generated",
		logging.String("title", vc.Title),
		logging.Int("script_runes", len([]rune(vc.Script))),
	)
	return contentResult(vc), nil
}

func (h *contentGeneration) HealthCheck(context.Context) Health {
	name := string(workflow.KindContentGeneration)
	if h.generator == nil {
		return Unhealthy(name, "no content generator configured")
	}
	if c, ok := h.generator.(interface{ Configured() bool }); ok && !c.Configured() {
		return Unhealthy(name, "content.api_key not set; topic submissions will fail")
	}
	return Healthy(name)
}

type contentPreparation struct {
	defaults content.Defaults
}

func (h *contentPreparation) Kind() workflow.Kind { return workflow.KindContentPreparation }

func (h *contentPreparation) Access() ([]workflow.Field, []workflow.Field) {
	return []workflow.Field{workflow.FieldInput, workflow.FieldRequirements}, []workflow.Field{workflow.FieldContent}
}

func (h *contentPreparation) Run(_ context.Context, wc *workflow.Context) (any, error) {
	in := wc.Input()
	if in.Content == nil {
		return nil, services.Wrap(services.ErrValidation, "content_preparation", "validate input", "structured content is required", nil)
	}
	vc := content.FromUserInput(*in.Content, wc.Requirements(), h.defaults)
	wc.SetContent(vc)
	return contentResult(vc), nil
}
