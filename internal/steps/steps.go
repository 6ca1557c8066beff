package steps

import (
	"context"
	"log/slog"
	"time"

	"clipturbo/internal/content"
	"clipturbo/internal/logging"
	"clipturbo/internal/render"
	"clipturbo/internal/scene"
	"clipturbo/internal/workflow"
)

const defaultPollInterval = 2 * time.Second

// Renderer is the subset of the render supervisor the rendering and
// post-processing steps use.
type Renderer interface {
	Submit(ctx context.Context, r *scene.Renderable, cfg render.Config, opts ...render.SubmitOption) (string, error)
	Status(id string) (render.JobStatus, bool)
	Done(id string) (<-chan struct{}, bool)
	Wait(ctx context.Context, id string) (render.Result, error)
	Cancel(id string) bool
}

// Dependencies are the collaborators shared by the handlers.
type Dependencies struct {
	Generator content.Generator
	Defaults  content.Defaults
	Renders   Renderer
	OutputDir string
	Logger    *slog.Logger
	// PollInterval controls how often rendering progress is copied onto the
	// step while waiting for the job. Defaults to two seconds.
	PollInterval time.Duration
}

// Handlers returns one handler per step kind.
func Handlers(deps Dependencies) []workflow.Handler {
	if deps.PollInterval <= 0 {
		deps.PollInterval = defaultPollInterval
	}
	logger := logging.NewComponentLogger(deps.Logger, "steps")
	return []workflow.Handler{
		&contentGeneration{generator: deps.Generator, logger: logger},
		&contentPreparation{defaults: deps.Defaults},
		templateSelection{},
		parameterPreparation{},
		sceneCreation{},
		&videoRendering{renders: deps.Renders, poll: deps.PollInterval, logger: logger},
		&postProcessing{outputDir: deps.OutputDir, logger: logger},
	}
}

// CheckHealth reports the readiness of every handler that can tell.
func CheckHealth(ctx context.Context, handlers []workflow.Handler) []Health {
	var out []Health
	for _, h := range handlers {
		if checker, ok := h.(HealthChecker); ok {
			out = append(out, checker.HealthCheck(ctx))
		}
	}
	return out
}
