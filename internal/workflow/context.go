package workflow

import (
	"slices"
	"sync"

	"clipturbo/internal/content"
	"clipturbo/internal/scene"
)

// Field names a slot in the shared workflow context.
type Field string

const (
	FieldInput        Field = "input"
	FieldRequirements Field = "requirements"
	FieldContent      Field = "content"
	FieldTemplate     Field = "template"
	FieldParameters   Field = "parameters"
	FieldScene        Field = "scene"
	FieldRenderJobID  Field = "render_job_id"
	FieldRenderOutput Field = "render_output"
	FieldOutputFiles  Field = "output_files"
)

// Context is the typed state shared by the steps of one workflow. Every
// accessor takes the lock, so steps running in the same generation can use it
// concurrently.
type Context struct {
	mu           sync.RWMutex
	workflowID   string
	input        Input
	requirements content.Requirements
	content      *content.VideoContent
	template     string
	parameters   scene.Values
	scene        *scene.Renderable
	renderJobID  string
	renderOutput string
	outputFiles  []string
}

// NewContext seeds a context with the caller's input.
func NewContext(workflowID string, in Input, req content.Requirements) *Context {
	return &Context{workflowID: workflowID, input: in, requirements: req}
}

func (c *Context) WorkflowID() string { return c.workflowID }

func (c *Context) Input() Input {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.input
}

func (c *Context) Requirements() content.Requirements {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requirements
}

func (c *Context) Content() *content.VideoContent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.content
}

func (c *Context) SetContent(vc *content.VideoContent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = vc
}

func (c *Context) Template() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.template
}

func (c *Context) SetTemplate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.template = id
}

// Parameters returns a copy of the prepared template parameters.
func (c *Context) Parameters() scene.Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.parameters == nil {
		return nil
	}
	out := make(scene.Values, len(c.parameters))
	for k, v := range c.parameters {
		out[k] = v
	}
	return out
}

func (c *Context) SetParameters(values scene.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parameters = values
}

func (c *Context) Scene() *scene.Renderable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scene
}

func (c *Context) SetScene(r *scene.Renderable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scene = r
}

func (c *Context) RenderJobID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.renderJobID
}

func (c *Context) SetRenderJobID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderJobID = id
}

// RenderOutput is the video file of the workflow's completed render job.
func (c *Context) RenderOutput() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.renderOutput
}

func (c *Context) SetRenderOutput(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderOutput = path
}

func (c *Context) OutputFiles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.outputFiles)
}

// AddOutputFiles appends paths, skipping duplicates.
func (c *Context) AddOutputFiles(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		if p != "" && !slices.Contains(c.outputFiles, p) {
			c.outputFiles = append(c.outputFiles, p)
		}
	}
}
