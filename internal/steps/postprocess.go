package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipturbo/internal/fileutil"
	"clipturbo/internal/logging"
	"clipturbo/internal/services"
	"clipturbo/internal/textutil"
	"clipturbo/internal/workflow"
)

type postProcessing struct {
	outputDir string
	logger    *slog.Logger
}

func (h *postProcessing) Kind() workflow.Kind { return workflow.KindPostProcessing }

func (h *postProcessing) Access() ([]workflow.Field, []workflow.Field) {
	return []workflow.Field{workflow.FieldContent, workflow.FieldRenderJobID, workflow.FieldRenderOutput},
		[]workflow.Field{workflow.FieldOutputFiles}
}

// Run collects the rendered file, copies any attached audio next to it and
// writes a subtitle track. A missing video fails the step; subtitle and audio
// problems are logged, not fatal.
func (h *postProcessing) Run(ctx context.Context, wc *workflow.Context) (any, error) {
	jobID := wc.RenderJobID()
	if jobID == "" {
		return nil, services.Wrap(services.ErrValidation, "post_processing", "collect", "no render job recorded", nil)
	}
	video := wc.RenderOutput()
	if video == "" {
		return nil, services.Wrap(services.ErrNotFound, "post_processing", "collect", "no rendered video for "+jobID, nil)
	}
	if _, err := os.Stat(video); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "post_processing", "collect", "rendered video missing", err)
	}
	logger := logging.WithContext(services.WithJobID(ctx, jobID), h.logger)
	files := []string{video}

	vc := wc.Content()
	if vc != nil && strings.TrimSpace(vc.AudioFile) != "" {
		dst := filepath.Join(h.outputDir, jobID+"_"+textutil.SanitizeFileName(filepath.Base(vc.AudioFile)))
		if err := fileutil.CopyFileVerified(vc.AudioFile, dst); err != nil {
			logging.WarnWithContext(logger, "audio copy failed", "audio_copy_failed",
				logging.String(logging.FieldErrorHint, "check that content.audio_file exists and is readable"),
				logging.String("audio_file", vc.AudioFile),
				logging.Error(err),
			)
		} else {
			files = append(files, dst)
		}
	}

	if vc != nil && vc.Script != "" {
		path := filepath.Join(h.outputDir, "subtitles_"+jobID+".srt")
		if err := fileutil.WriteFileAtomic(path, []byte(SubtitleTrack(vc.Script)), 0o644); err != nil {
			logging.WarnWithContext(logger, "subtitle generation failed", "subtitle_write_failed",
				logging.String(logging.FieldErrorHint, "check output_dir permissions"),
				logging.Error(err),
			)
		} else {
			files = append(files, path)
		}
	}

	wc.AddOutputFiles(files...)
	logger.Info("post-processing complete", logging.Int("output_files", len(files)))
	return files, nil
}

// SubtitleTrack renders the two-cue SRT placeholder for a script: runes 0-50
// from second one to five, runes 50-100 from five to ten.
func SubtitleTrack(script string) string {
	return fmt.Sprintf("1\n00:00:01,000 --> 00:00:05,000\n%s\n\n2\n00:00:05,000 --> 00:00:10,000\n%s\n",
		textutil.Slice(script, 0, 50), textutil.Slice(script, 50, 100))
}
