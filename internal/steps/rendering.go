package steps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clipturbo/internal/content"
	"clipturbo/internal/logging"
	"clipturbo/internal/render"
	"clipturbo/internal/services"
	"clipturbo/internal/workflow"
)

type videoRendering struct {
	renders Renderer
	poll    time.Duration
	logger  *slog.Logger
}

func (h *videoRendering) Kind() workflow.Kind { return workflow.KindVideoRendering }

func (h *videoRendering) Access() ([]workflow.Field, []workflow.Field) {
	return []workflow.Field{workflow.FieldScene, workflow.FieldRequirements},
		[]workflow.Field{workflow.FieldRenderJobID, workflow.FieldRenderOutput, workflow.FieldOutputFiles}
}

func (h *videoRendering) Run(ctx context.Context, wc *workflow.Context) (any, error) {
	if h.renders == nil {
		return nil, services.Wrap(services.ErrConfiguration, "video_rendering", "submit", "render supervisor unavailable", nil)
	}
	r := wc.Scene()
	if r == nil {
		return nil, services.Wrap(services.ErrValidation, "video_rendering", "submit", "no scene available", nil)
	}
	cfg, err := RenderConfig(wc.Requirements())
	if err != nil {
		return nil, err
	}
	jobID, err := h.renders.Submit(ctx, r, cfg)
	if err != nil {
		return nil, err
	}
	wc.SetRenderJobID(jobID)
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, h.logger)
	logger.Info("render submitted", logging.String("template", r.TemplateID))

	done, ok := h.renders.Done(jobID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "video_rendering", "wait", "render job disappeared: "+jobID, nil)
	}
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-ctx.Done():
			h.renders.Cancel(jobID)
			return nil, services.Wrap(services.ErrCancelled, "video_rendering", "wait", "render cancelled with workflow", ctx.Err())
		case <-done:
			break wait
		case <-ticker.C:
			if st, ok := h.renders.Status(jobID); ok {
				workflow.ReportProgress(ctx, st.Progress)
			}
		}
	}

	res, err := h.renders.Wait(ctx, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "video_rendering", "result", "render result missing for "+jobID, err)
	}
	switch res.State {
	case render.StateCompleted:
	case render.StateCancelled:
		return nil, services.Wrap(services.ErrCancelled, "video_rendering", "render", "render job cancelled", nil)
	default:
		return nil, services.Wrap(services.ErrExternalTool, "video_rendering", "render", res.Error, nil)
	}
	wc.SetRenderOutput(res.OutputFile)
	wc.AddOutputFiles(res.OutputFile)
	logger.Info("render finished",
		logging.String("output_file", res.OutputFile),
		logging.Int64("file_size", res.FileSize),
		logging.Duration("render_duration", res.Duration),
	)
	return res, nil
}

// RenderConfig maps submission requirements onto a render config. Unset
// values are left zero so the supervisor's defaults and presets apply.
func RenderConfig(req content.Requirements) (render.Config, error) {
	cfg := render.Config{
		FrameRate:       req.FrameRate,
		BackgroundColor: strings.TrimSpace(req.BackgroundColor),
		Preview:         req.Preview,
		ExtraFlags:      req.ExtraFlags,
	}
	if strings.TrimSpace(req.Quality) != "" {
		q, err := render.ParseQuality(req.Quality)
		if err != nil {
			return render.Config{}, services.Wrap(services.ErrValidation, "video_rendering", "configure", "invalid quality", err)
		}
		cfg.Quality = q
	}
	switch len(req.Resolution) {
	case 0:
	case 2:
		if req.Resolution[0] <= 0 || req.Resolution[1] <= 0 {
			return render.Config{}, services.Wrap(services.ErrValidation, "video_rendering", "configure",
				fmt.Sprintf("resolution must be positive, got %dx%d", req.Resolution[0], req.Resolution[1]), nil)
		}
		cfg.Width, cfg.Height = req.Resolution[0], req.Resolution[1]
	default:
		return render.Config{}, services.Wrap(services.ErrValidation, "video_rendering", "configure",
			fmt.Sprintf("resolution needs [width, height], got %d values", len(req.Resolution)), nil)
	}
	if cfg.FrameRate < 0 {
		return render.Config{}, services.Wrap(services.ErrValidation, "video_rendering", "configure", "frame_rate must not be negative", nil)
	}
	return cfg, nil
}
