package render

import (
	"fmt"
	"strings"
)

// Quality names a render preset.
type Quality string

const (
	QualityLow        Quality = "low"
	QualityMedium     Quality = "medium"
	QualityHigh       Quality = "high"
	QualityProduction Quality = "production"
)

// Preset maps a quality level to manim's flag and its default geometry.
type Preset struct {
	Flag      string
	Width     int
	Height    int
	FrameRate int
}

var presets = map[Quality]Preset{
	QualityLow:        {Flag: "low_quality", Width: 854, Height: 480, FrameRate: 15},
	QualityMedium:     {Flag: "medium_quality", Width: 1280, Height: 720, FrameRate: 24},
	QualityHigh:       {Flag: "high_quality", Width: 1920, Height: 1080, FrameRate: 30},
	QualityProduction: {Flag: "production_quality", Width: 1920, Height: 1080, FrameRate: 60},
}

// ParseQuality accepts "high", "HIGH" or "high_quality".
func ParseQuality(value string) (Quality, error) {
	q := Quality(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "_quality"))
	if _, ok := presets[q]; !ok {
		return "", fmt.Errorf("unknown render quality %q", value)
	}
	return q, nil
}

// PresetFor returns the preset for q, falling back to medium.
func PresetFor(q Quality) Preset {
	if p, ok := presets[q]; ok {
		return p
	}
	return presets[QualityMedium]
}

// Config describes how one scene should be rendered. Zero geometry means
// "use the preset".
type Config struct {
	Quality         Quality  `json:"quality"`
	Width           int      `json:"width,omitempty"`
	Height          int      `json:"height,omitempty"`
	FrameRate       int      `json:"frame_rate,omitempty"`
	Format          string   `json:"format,omitempty"`
	BackgroundColor string   `json:"background_color,omitempty"`
	Preview         bool     `json:"preview,omitempty"`
	ExtraFlags      []string `json:"extra_flags,omitempty"`
}

// Resolved fills preset geometry for any dimension the caller left unset.
func (c Config) Resolved(defaultQuality Quality, defaultFormat string) Config {
	if _, ok := presets[c.Quality]; !ok {
		c.Quality = defaultQuality
	}
	preset := PresetFor(c.Quality)
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = preset.Width, preset.Height
	}
	if c.FrameRate <= 0 {
		c.FrameRate = preset.FrameRate
	}
	if strings.TrimSpace(c.Format) == "" {
		c.Format = defaultFormat
	}
	c.Format = normalizeFormat(c.Format)
	if c.Format == "" {
		c.Format = "mp4"
	}
	return c
}

func normalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// Args builds the manim argument list for a resolved config.
func (c Config) Args(scriptPath, sceneClass, outputPath string) []string {
	args := []string{
		scriptPath,
		sceneClass,
		"--quality=" + PresetFor(c.Quality).Flag,
		fmt.Sprintf("--resolution=%d,%d", c.Width, c.Height),
		fmt.Sprintf("--frame_rate=%d", c.FrameRate),
		"--output_file=" + outputPath,
	}
	if c.Preview {
		args = append(args, "--preview")
	}
	if c.BackgroundColor != "" {
		args = append(args, "--background_color="+c.BackgroundColor)
	}
	return append(args, c.ExtraFlags...)
}
