package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clipturbo/internal/services"
)

// Generator turns a bare topic into VideoContent.
type Generator interface {
	Generate(ctx context.Context, topic string, req Requirements) (*VideoContent, error)
}

// Completer is the subset of LLMClient the generator needs.
type Completer interface {
	Configured() bool
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMGenerator writes scripts with a chat completion model.
type LLMGenerator struct {
	client   Completer
	defaults Defaults
}

// NewLLMGenerator constructs a generator backed by client.
func NewLLMGenerator(client Completer, defaults Defaults) *LLMGenerator {
	return &LLMGenerator{client: client, defaults: defaults.withFallbacks()}
}

// Configured reports whether the backing client can make requests.
func (g *LLMGenerator) Configured() bool {
	return g != nil && g.client != nil && g.client.Configured()
}

const scriptSystemPrompt = `You write scripts for short-form vertical videos.
Respond with a single JSON object with these keys:
  "title": string, a catchy title
  "script": string, the full narration
  "hooks": array of strings, opening lines that grab attention in three seconds
  "tags": array of strings, hashtags without the # sign
  "description": string, a one-paragraph description for the upload`

type generatedScript struct {
	Title       string   `json:"title"`
	Script      string   `json:"script"`
	Hooks       []string `json:"hooks"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
}

// Generate asks the model for a script about topic and maps it onto VideoContent.
func (g *LLMGenerator) Generate(ctx context.Context, topic string, req Requirements) (*VideoContent, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, "content", "generate", "topic is required", nil)
	}
	if g == nil || g.client == nil || !g.client.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "content", "generate", "no content provider configured (set content.api_key)", nil)
	}
	language := firstNonEmpty(req.Language, g.defaults.Language)
	styleName := firstNonEmpty(req.Style, g.defaults.Style)
	duration := firstPositive(req.Duration, g.defaults.Duration)

	raw, err := g.client.CompleteJSON(ctx, scriptSystemPrompt, BuildPrompt(topic, LookupStyle(styleName), duration, language))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "content", "generate", "llm completion timed out", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "content", "generate", "llm completion failed", err)
	}
	var parsed generatedScript
	if err := DecodeJSON(raw, &parsed); err != nil {
		// Models occasionally ignore the JSON instruction; treat the reply as the script.
		parsed = generatedScript{Script: strings.TrimSpace(raw)}
	}
	script := strings.TrimSpace(parsed.Script)
	if script == "" {
		return nil, services.Wrap(services.ErrExternalTool, "content", "generate", "model returned an empty script", nil)
	}
	return &VideoContent{
		Title:          firstNonEmpty(parsed.Title, topic),
		Script:         script,
		Language:       language,
		Style:          styleName,
		TargetDuration: duration,
		Hooks:          parsed.Hooks,
		Tags:           parsed.Tags,
		Description:    strings.TrimSpace(parsed.Description),
	}, nil
}

// BuildPrompt renders the user prompt for a script request.
func BuildPrompt(topic string, style Style, duration int, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %d second short video script.\n\n", duration)
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Style: %s\n", style.Description)
	fmt.Fprintf(&b, "Tone: %s\n", style.Tone)
	fmt.Fprintf(&b, "Structure: %s\n", style.Structure)
	fmt.Fprintf(&b, "Target length: about %d characters\n", duration*3)
	fmt.Fprintf(&b, "Language: %s\n", language)
	if len(style.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords to lean on: %s\n", strings.Join(style.Keywords, ", "))
	}
	b.WriteString("\nOpen with a hook, keep it tight, and end with a clear call to action or summary.")
	return b.String()
}
