package scene

import (
	"sort"
	"text/template"
)

// Template identifiers.
const (
	SimpleText  = "simple_text"
	ListDisplay = "list_display"
)

// SceneClass is the class name every generated script defines.
const SceneClass = "RenderScene"

// ParamType classifies a template parameter.
type ParamType string

const (
	TypeText   ParamType = "text"
	TypeNumber ParamType = "number"
	TypeBool   ParamType = "bool"
	TypeChoice ParamType = "choice"
	TypeColor  ParamType = "color"
)

// Parameter defines one input a template accepts.
type Parameter struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Default     any       `json:"default,omitempty"`
	Required    bool      `json:"required"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Choices     []string  `json:"choices,omitempty"`
}

// Template describes an animation layout.
type Template struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Tags        []string    `json:"tags"`
	MinDuration int         `json:"min_duration"`
	MaxDuration int         `json:"max_duration"`
	Parameters  []Parameter `json:"parameters"`

	source *template.Template
}

func bound(v float64) *float64 { return &v }

var catalog = map[string]*Template{
	SimpleText: {
		ID:          SimpleText,
		Name:        "Simple text",
		Description: "Title card with an optional subtitle, suited to short content",
		Category:    "text",
		Tags:        []string{"text", "simple", "basic"},
		MinDuration: 5,
		MaxDuration: 30,
		Parameters: []Parameter{
			{Name: "title", Type: TypeText, Description: "Main title", Required: true},
			{Name: "subtitle", Type: TypeText, Description: "Subtitle", Default: ""},
			{Name: "font_size", Type: TypeNumber, Description: "Font size", Default: 48.0, Min: bound(12), Max: bound(120)},
			{Name: "text_color", Type: TypeColor, Description: "Text colour", Default: "WHITE"},
			{Name: "background_color", Type: TypeColor, Description: "Background colour", Default: "BLACK"},
			{Name: "animation_style", Type: TypeChoice, Description: "Entrance animation", Default: "fade", Choices: []string{"fade", "write", "slide"}},
		},
		source: template.Must(template.New(SimpleText).Funcs(sourceFuncs).Parse(simpleTextSource)),
	},
	ListDisplay: {
		ID:          ListDisplay,
		Name:        "List display",
		Description: "Bulleted points, steps or checklists paged across screens",
		Category:    "list",
		Tags:        []string{"list", "bullet", "steps"},
		MinDuration: 15,
		MaxDuration: 60,
		Parameters: []Parameter{
			{Name: "title", Type: TypeText, Description: "List title", Required: true},
			{Name: "items", Type: TypeText, Description: "List items, one per line", Required: true},
			{Name: "max_items_per_screen", Type: TypeNumber, Description: "Items shown per screen", Default: 5.0, Min: bound(1), Max: bound(10)},
			{Name: "item_animation", Type: TypeChoice, Description: "Item entrance animation", Default: "sequential", Choices: []string{"sequential", "simultaneous", "typewriter"}},
		},
		source: template.Must(template.New(ListDisplay).Funcs(sourceFuncs).Parse(listDisplaySource)),
	},
}

// Lookup returns the template with the given ID.
func Lookup(id string) (*Template, bool) {
	tpl, ok := catalog[id]
	return tpl, ok
}

// Templates lists the catalog ordered by ID.
func Templates() []*Template {
	out := make([]*Template, 0, len(catalog))
	for _, tpl := range catalog {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
