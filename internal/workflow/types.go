package workflow

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipturbo/internal/content"
)

// State is a workflow lifecycle state.
type State string

const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// StepState is a step lifecycle state.
type StepState string

const (
	StepPending   StepState = "pending"
	StepRunning   StepState = "running"
	StepCompleted StepState = "completed"
	StepFailed    StepState = "failed"
	StepSkipped   StepState = "skipped"
)

// Kind identifies the handler that executes a step.
type Kind string

const (
	KindContentGeneration    Kind = "content_generation"
	KindContentPreparation   Kind = "content_preparation"
	KindTemplateSelection    Kind = "template_selection"
	KindParameterPreparation Kind = "parameter_preparation"
	KindSceneCreation        Kind = "scene_creation"
	KindVideoRendering       Kind = "video_rendering"
	KindPostProcessing       Kind = "post_processing"
)

// kindLabels is filled once at init. A cases.Caser keeps state between calls
// and must not be shared across goroutines.
var kindLabels = func() map[Kind]string {
	kinds := []Kind{
		KindContentGeneration,
		KindContentPreparation,
		KindTemplateSelection,
		KindParameterPreparation,
		KindSceneCreation,
		KindVideoRendering,
		KindPostProcessing,
	}
	labels := make(map[Kind]string, len(kinds))
	for _, k := range kinds {
		labels[k] = titleCase(string(k))
	}
	return labels
}()

// Label renders the kind for humans ("video_rendering" -> "Video Rendering").
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return titleCase(string(k))
}

func titleCase(value string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(value, "_", " "))
}

// Input is the caller's request: a bare topic or structured content.
type Input struct {
	Topic   string               `json:"topic,omitempty"`
	Content *content.UserContent `json:"content,omitempty"`
}

// UserProvided reports whether the input carries structured content.
func (in Input) UserProvided() bool { return in.Content != nil }

// step is the engine's mutable record of one graph node.
type step struct {
	name      string
	kind      Kind
	dependsOn []string
	state     StepState
	progress  float64
	err       string
	result    any
	startedAt time.Time
	endedAt   time.Time
}

// StepSnapshot is a read-only view of a step.
type StepSnapshot struct {
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Kind      Kind      `json:"kind"`
	DependsOn []string  `json:"depends_on,omitempty"`
	State     StepState `json:"state"`
	Progress  float64   `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Result    any       `json:"result,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
}

// Snapshot is a read-only view of a workflow.
type Snapshot struct {
	ID            string         `json:"id"`
	State         State          `json:"state"`
	Input         Input          `json:"input"`
	Steps         []StepSnapshot `json:"steps"`
	OutputFiles   []string       `json:"output_files"`
	Error         string         `json:"error,omitempty"`
	RenderJobID   string         `json:"render_job_id,omitempty"`
	Title         string         `json:"title,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     time.Time      `json:"started_at,omitzero"`
	EndedAt       time.Time      `json:"ended_at,omitzero"`
	TotalDuration time.Duration  `json:"total_duration"`
}

// Progress averages step progress.
func (s Snapshot) Progress() float64 {
	if len(s.Steps) == 0 {
		return 0
	}
	var total float64
	for _, st := range s.Steps {
		total += st.Progress
	}
	return total / float64(len(s.Steps))
}

// Summary is the compact form returned by ListActive.
type Summary struct {
	ID        string        `json:"id"`
	State     State         `json:"state"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}
