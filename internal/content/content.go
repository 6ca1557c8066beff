package content

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultTitle    = "Untitled video"
	DefaultLanguage = "zh-CN"
	DefaultStyle    = "default"
	DefaultDuration = 60
)

// VideoContent is the script-level description of one video.
type VideoContent struct {
	Title            string   `json:"title"`
	Script           string   `json:"script"`
	Language         string   `json:"language"`
	Style            string   `json:"style"`
	TargetDuration   int      `json:"target_duration"`
	TranslatedScript string   `json:"translated_script,omitempty"`
	Icons            []string `json:"icons,omitempty"`
	AudioFile        string   `json:"audio_file,omitempty"`
	Hooks            []string `json:"hooks,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Description      string   `json:"description,omitempty"`
}

// UserContent is content supplied directly by the caller instead of being generated.
type UserContent struct {
	Title            string   `json:"title,omitempty" yaml:"title,omitempty"`
	Script           string   `json:"script,omitempty" yaml:"script,omitempty"`
	Language         string   `json:"language,omitempty" yaml:"language,omitempty"`
	Style            string   `json:"style,omitempty" yaml:"style,omitempty"`
	Duration         int      `json:"duration,omitempty" yaml:"duration,omitempty"`
	TranslatedScript string   `json:"translated_script,omitempty" yaml:"translated_script,omitempty"`
	Icons            []string `json:"icons,omitempty" yaml:"icons,omitempty"`
	AudioFile        string   `json:"audio_file,omitempty" yaml:"audio_file,omitempty"`
}

// Requirements are the production knobs a caller attaches to a submission.
// Zero values mean "use the default".
type Requirements struct {
	Language          string   `json:"language,omitempty" yaml:"language,omitempty"`
	Style             string   `json:"style,omitempty" yaml:"style,omitempty"`
	Duration          int      `json:"duration,omitempty" yaml:"duration,omitempty"`
	Quality           string   `json:"quality,omitempty" yaml:"quality,omitempty"`
	Resolution        []int    `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	FrameRate         int      `json:"frame_rate,omitempty" yaml:"frame_rate,omitempty"`
	BackgroundColor   string   `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	TextColor         string   `json:"text_color,omitempty" yaml:"text_color,omitempty"`
	FontSize          float64  `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	AnimationStyle    string   `json:"animation_style,omitempty" yaml:"animation_style,omitempty"`
	MaxItemsPerScreen int      `json:"max_items_per_screen,omitempty" yaml:"max_items_per_screen,omitempty"`
	ItemAnimation     string   `json:"item_animation,omitempty" yaml:"item_animation,omitempty"`
	Preview           bool     `json:"preview,omitempty" yaml:"preview,omitempty"`
	ExtraFlags        []string `json:"extra_flags,omitempty" yaml:"extra_flags,omitempty"`
}

// Defaults holds the fallbacks applied when neither content nor requirements
// specify language, style or duration.
type Defaults struct {
	Language string
	Style    string
	Duration int
}

func (d Defaults) withFallbacks() Defaults {
	if strings.TrimSpace(d.Language) == "" {
		d.Language = DefaultLanguage
	}
	if strings.TrimSpace(d.Style) == "" {
		d.Style = DefaultStyle
	}
	if d.Duration <= 0 {
		d.Duration = DefaultDuration
	}
	return d
}

// FromUserInput converts user-supplied content into VideoContent. Content
// fields win over requirements, which win over defaults.
func FromUserInput(in UserContent, req Requirements, defaults Defaults) *VideoContent {
	defaults = defaults.withFallbacks()
	vc := &VideoContent{
		Title:            firstNonEmpty(in.Title, DefaultTitle),
		Script:           in.Script,
		Language:         firstNonEmpty(in.Language, req.Language, defaults.Language),
		Style:            firstNonEmpty(in.Style, req.Style, defaults.Style),
		TargetDuration:   firstPositive(in.Duration, req.Duration, defaults.Duration),
		TranslatedScript: strings.TrimSpace(in.TranslatedScript),
		AudioFile:        strings.TrimSpace(in.AudioFile),
	}
	if len(in.Icons) > 0 {
		vc.Icons = append([]string(nil), in.Icons...)
	}
	return vc
}

// EstimateDuration guesses the spoken length of a script in seconds: about
// three characters per second, never below ten seconds.
func EstimateDuration(script string) int {
	stripped := strings.NewReplacer(" ", "", "\n", "").Replace(script)
	seconds := utf8.RuneCountInString(stripped) / 3
	if seconds < 10 {
		return 10
	}
	return seconds
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, value := range values {
		if value > 0 {
			return value
		}
	}
	return 0
}
