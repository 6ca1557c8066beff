package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"clipturbo/internal/services"
)

// Renderable is a complete manim scene script ready to be written to disk.
type Renderable struct {
	TemplateID string `json:"template_id"`
	SceneClass string `json:"scene_class"`
	Source     string `json:"-"`
}

// Build validates values and renders the template's scene script.
func Build(templateID string, values Values) (*Renderable, error) {
	tpl, ok := Lookup(templateID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "scene", "build", fmt.Sprintf("unknown template %q", templateID), nil)
	}
	validated, err := Validate(templateID, values)
	if err != nil {
		return nil, err
	}
	data := map[string]any{
		"Class":  SceneClass,
		"Values": validated,
	}
	if templateID == ListDisplay {
		data["Items"] = splitItems(validated.Text("items"))
		data["PerScreen"] = int(validated.Number("max_items_per_screen"))
	}
	var buf bytes.Buffer
	if err := tpl.source.Execute(&buf, data); err != nil {
		return nil, services.Wrap(services.ErrValidation, "scene", "build", "render scene source", err)
	}
	return &Renderable{TemplateID: templateID, SceneClass: SceneClass, Source: buf.String()}, nil
}

func splitItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

var sourceFuncs = template.FuncMap{
	"py":     pyString,
	"pylist": pyList,
	"color":  pyColor,
	"num":    pyNumber,
}

// pyString renders s as a Python string literal. JSON string escapes are a
// subset of Python's.
func pyString(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSpace(buf.String())
}

func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = pyString(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// pyColor maps named colours to manim constants and quotes hex values.
func pyColor(v any) string {
	s := fmt.Sprint(v)
	if _, ok := namedColors[strings.ToLower(s)]; ok {
		return strings.ToUpper(s)
	}
	return pyString(s)
}

func pyNumber(v any) string {
	n, _ := toNumber(v)
	return strconv.FormatFloat(n, 'f', -1, 64)
}

const simpleTextSource = `from manim import *


class {{.Class}}(Scene):
    def construct(self):
        self.camera.background_color = {{color (index .Values "background_color")}}
        font_size = {{num (index .Values "font_size")}}
        title = Text({{py (index .Values "title")}}, font_size=font_size, color={{color (index .Values "text_color")}})
{{- $subtitle := index .Values "subtitle"}}
{{- if $subtitle}}
        subtitle = Text({{py $subtitle}}, font_size=font_size * 0.6, color={{color (index .Values "text_color")}})
        subtitle.next_to(title, direction=DOWN, buff=0.5)
        group = VGroup(title, subtitle)
{{- else}}
        group = VGroup(title)
{{- end}}
        group.move_to(ORIGIN)
{{- $style := index .Values "animation_style"}}
{{- if eq $style "write"}}
        self.play(Write(group))
        self.wait(2)
        self.play(FadeOut(group))
{{- else if eq $style "slide"}}
        group.shift(LEFT * 3)
        self.play(group.animate.shift(RIGHT * 3))
        self.wait(2)
        self.play(group.animate.shift(RIGHT * 3))
{{- else}}
        self.play(FadeIn(group))
        self.wait(2)
        self.play(FadeOut(group))
{{- end}}
`

const listDisplaySource = `from manim import *


class {{.Class}}(Scene):
    def construct(self):
        items = {{pylist .Items}}
        per_screen = {{.PerScreen}}
        title = Text({{py (index .Values "title")}}, font_size=36)
        title.to_edge(UP, buff=1)
        self.play(Write(title))
        self.wait(0.5)
        for start in range(0, len(items), per_screen):
            shown = []
            for offset, item in enumerate(items[start:start + per_screen]):
                bullet = Text("•", font_size=24)
                text = Text(item, font_size=20)
                text.next_to(bullet, RIGHT, buff=0.2)
                row = VGroup(bullet, text)
                row.shift(DOWN * (offset * 0.8 + 1))
                shown.append(row)
{{- $anim := index .Values "item_animation"}}
{{- if eq $anim "simultaneous"}}
            self.play(*[FadeIn(row) for row in shown])
{{- else if eq $anim "typewriter"}}
            for row in shown:
                self.play(Write(row), run_time=1)
{{- else}}
            for row in shown:
                self.play(FadeIn(row), run_time=0.5)
{{- end}}
            self.wait(2)
            if start + per_screen < len(items):
                self.play(*[FadeOut(row) for row in shown])
        self.wait(1)
`
