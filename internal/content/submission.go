package content

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"clipturbo/internal/services"
)

// Submission is a request to produce one video. Exactly one of Topic or
// Content must be set: a topic runs the AI path, content runs the user path.
type Submission struct {
	WorkflowID   string       `json:"workflow_id,omitempty" yaml:"workflow_id,omitempty"`
	Topic        string       `json:"topic,omitempty" yaml:"topic,omitempty"`
	Content      *UserContent `json:"content,omitempty" yaml:"content,omitempty"`
	Requirements Requirements `json:"requirements,omitempty" yaml:"requirements,omitempty"`
}

// Validate checks the topic/content exclusivity rule.
func (s Submission) Validate() error {
	hasTopic := strings.TrimSpace(s.Topic) != ""
	hasContent := s.Content != nil
	switch {
	case hasTopic && hasContent:
		return services.Wrap(services.ErrValidation, "content", "submission", "topic and content are mutually exclusive", nil)
	case !hasTopic && !hasContent:
		return services.Wrap(services.ErrValidation, "content", "submission", "either topic or content is required", nil)
	}
	if hasContent && strings.TrimSpace(s.Content.Script) == "" {
		return services.Wrap(services.ErrValidation, "content", "submission", "content script is required", nil)
	}
	return nil
}

// Parse decodes a YAML or JSON submission document and validates it.
// JSON is a subset of YAML so one decoder covers both.
func Parse(data []byte) (Submission, error) {
	var sub Submission
	if len(bytes.TrimSpace(data)) == 0 {
		return sub, services.Wrap(services.ErrValidation, "content", "parse submission", "empty submission", nil)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sub); err != nil {
		return Submission{}, services.Wrap(services.ErrValidation, "content", "parse submission", fmt.Sprintf("decode: %v", err), nil)
	}
	sub.Topic = strings.TrimSpace(sub.Topic)
	sub.WorkflowID = strings.TrimSpace(sub.WorkflowID)
	if err := sub.Validate(); err != nil {
		return Submission{}, err
	}
	return sub, nil
}
