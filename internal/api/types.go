package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Step describes one workflow step.
type Step struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Kind       string   `json:"kind"`
	DependsOn  []string `json:"dependsOn,omitempty"`
	State      string   `json:"state"`
	Progress   float64  `json:"progress"`
	Error      string   `json:"error,omitempty"`
	StartedAt  string   `json:"startedAt,omitempty"`
	EndedAt    string   `json:"endedAt,omitempty"`
	DurationMS int64    `json:"durationMs,omitempty"`
}

// Workflow is the transport form of a workflow snapshot.
type Workflow struct {
	ID              string   `json:"id"`
	State           string   `json:"state"`
	Title           string   `json:"title,omitempty"`
	Topic           string   `json:"topic,omitempty"`
	Progress        float64  `json:"progress"`
	Steps           []Step   `json:"steps"`
	OutputFiles     []string `json:"outputFiles"`
	Error           string   `json:"error,omitempty"`
	RenderJobID     string   `json:"renderJobId,omitempty"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	StartedAt       string   `json:"startedAt,omitempty"`
	EndedAt         string   `json:"endedAt,omitempty"`
	TotalDurationMS int64    `json:"totalDurationMs"`
	Archived        bool     `json:"archived,omitempty"`
}

// WorkflowSummary is one entry of the active workflow list.
type WorkflowSummary struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	StartedAt  string `json:"startedAt,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// WorkflowListResponse wraps the active workflow list.
type WorkflowListResponse struct {
	Workflows []WorkflowSummary `json:"workflows"`
}

// CreateWorkflowResponse returns the identifier of a new workflow.
type CreateWorkflowResponse struct {
	ID string `json:"id"`
}

// CancelResponse reports whether a cancel request took effect.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// RenderResult is the terminal outcome of a render job.
type RenderResult struct {
	Success    bool   `json:"success"`
	OutputFile string `json:"outputFile,omitempty"`
	DurationMS int64  `json:"durationMs"`
	FileSize   int64  `json:"fileSize"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FrameCount int    `json:"frameCount"`
	Error      string `json:"error,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// Job describes a render job.
type Job struct {
	ID          string        `json:"id"`
	State       string        `json:"state"`
	Progress    float64       `json:"progress"`
	TemplateID  string        `json:"templateId,omitempty"`
	Quality     string        `json:"quality"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	FrameRate   int           `json:"frameRate"`
	OutputFile  string        `json:"outputFile"`
	SubmittedAt string        `json:"submittedAt,omitempty"`
	StartedAt   string        `json:"startedAt,omitempty"`
	Result      *RenderResult `json:"result,omitempty"`
	Archived    bool          `json:"archived,omitempty"`
}

// Resources reports host capacity next to the render queue.
type Resources struct {
	DiskFreeBytes  uint64     `json:"diskFreeBytes"`
	DiskTotalBytes uint64     `json:"diskTotalBytes"`
	LoadAverage    [3]float64 `json:"loadAverage"`
}

// QueueResponse is the render queue snapshot.
type QueueResponse struct {
	Queued    int        `json:"queued"`
	Running   int        `json:"running"`
	Completed int        `json:"completed"`
	Limit     int        `json:"limit"`
	Jobs      []Job      `json:"jobs"`
	Resources *Resources `json:"resources,omitempty"`
}

// HistoryResponse lists archived workflows, newest first.
type HistoryResponse struct {
	Workflows []Workflow `json:"workflows"`
}

// StepHealth mirrors readiness reporting for step handlers.
type StepHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running         bool               `json:"running"`
	PID             int                `json:"pid"`
	StartedAt       string             `json:"startedAt,omitempty"`
	HistoryDBPath   string             `json:"historyDbPath"`
	LockFilePath    string             `json:"lockFilePath"`
	LogPath         string             `json:"logPath,omitempty"`
	ActiveWorkflows int                `json:"activeWorkflows"`
	QueuedJobs      int                `json:"queuedJobs"`
	RunningJobs     int                `json:"runningJobs"`
	RenderLimit     int                `json:"renderLimit"`
	IntakeEnabled   bool               `json:"intakeEnabled"`
	StepHealth      []StepHealth       `json:"stepHealth"`
	Dependencies    []DependencyStatus `json:"dependencies"`
	History         map[string]int     `json:"history,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
