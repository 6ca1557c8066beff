package scene_test

import (
	"errors"
	"strings"
	"testing"

	"clipturbo/internal/content"
	"clipturbo/internal/scene"
	"clipturbo/internal/services"
)

func TestSelect(t *testing.T) {
	long := strings.Repeat("x", 150)
	list := strings.Repeat("first point here\n", 15)
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"short", "hello", scene.SimpleText},
		{"long single line", strings.Repeat("y", 300), scene.SimpleText},
		{"medium with newline", long[:120] + "\n" + long[:30], scene.SimpleText},
		{"long multi line", list, scene.ListDisplay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scene.Select(&content.VideoContent{Script: tt.script}); got != tt.want {
				t.Fatalf("Select = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrepareParametersSimpleText(t *testing.T) {
	vc := &content.VideoContent{Title: "Hi", Script: strings.Repeat("a", 120)}
	values, err := scene.PrepareParameters(scene.SimpleText, vc, content.Requirements{TextColor: "#ff0000"})
	if err != nil {
		t.Fatalf("PrepareParameters: %v", err)
	}
	if got := values.Text("subtitle"); got != strings.Repeat("a", 100)+"..." {
		t.Fatalf("unexpected subtitle %q", got)
	}
	if values.Number("font_size") != 48 {
		t.Fatalf("expected default font size, got %v", values["font_size"])
	}
	if values.Text("text_color") != "#ff0000" || values.Text("background_color") != "BLACK" {
		t.Fatalf("unexpected colours %v", values)
	}
	if values.Text("animation_style") != "fade" {
		t.Fatalf("unexpected animation %q", values.Text("animation_style"))
	}
}

func TestPrepareParametersListDisplay(t *testing.T) {
	vc := &content.VideoContent{Title: "Steps", Script: "one\ntwo"}
	values, err := scene.PrepareParameters(scene.ListDisplay, vc, content.Requirements{MaxItemsPerScreen: 3})
	if err != nil {
		t.Fatalf("PrepareParameters: %v", err)
	}
	if values.Text("items") != "one\ntwo" || values.Number("max_items_per_screen") != 3 {
		t.Fatalf("unexpected values %v", values)
	}
	if values.Text("item_animation") != "sequential" {
		t.Fatalf("unexpected animation %q", values.Text("item_animation"))
	}
}

func TestPrepareParametersUnknownTemplate(t *testing.T) {
	_, err := scene.PrepareParameters("nope", &content.VideoContent{}, content.Requirements{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		values  scene.Values
		wantErr string
	}{
		{"defaults applied", scene.SimpleText, scene.Values{"title": "T"}, ""},
		{"missing required", scene.SimpleText, scene.Values{"subtitle": "x"}, `"title" is required`},
		{"font too small", scene.SimpleText, scene.Values{"title": "T", "font_size": 8}, "below minimum"},
		{"font too large", scene.SimpleText, scene.Values{"title": "T", "font_size": "500"}, "above maximum"},
		{"font not numeric", scene.SimpleText, scene.Values{"title": "T", "font_size": "big"}, "not a number"},
		{"bad choice", scene.SimpleText, scene.Values{"title": "T", "animation_style": "spin"}, "not one of"},
		{"bad colour", scene.SimpleText, scene.Values{"title": "T", "text_color": "purple"}, "invalid colour"},
		{"named colour any case", scene.SimpleText, scene.Values{"title": "T", "text_color": "Red"}, ""},
		{"list items required", scene.ListDisplay, scene.Values{"title": "T"}, `"items" is required`},
		{"list per screen range", scene.ListDisplay, scene.Values{"title": "T", "items": "a", "max_items_per_screen": 11}, "above maximum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := scene.Validate(tt.id, tt.values)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				if tt.id == scene.SimpleText && out.Number("font_size") == 0 {
					t.Fatalf("expected font_size default, got %v", out)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestBuildSimpleText(t *testing.T) {
	r, err := scene.Build(scene.SimpleText, scene.Values{
		"title":           `Say "hi"`,
		"subtitle":        "line\nbreak",
		"text_color":      "#00ff00",
		"animation_style": "write",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.SceneClass != "RenderScene" || r.TemplateID != scene.SimpleText {
		t.Fatalf("unexpected renderable %+v", r)
	}
	for _, want := range []string{
		"class RenderScene(Scene):",
		`Text("Say \"hi\""`,
		`Text("line\nbreak"`,
		`color="#00ff00"`,
		"background_color = BLACK",
		"font_size = 48",
		"self.play(Write(group))",
	} {
		if !strings.Contains(r.Source, want) {
			t.Fatalf("source missing %q:\n%s", want, r.Source)
		}
	}
	if strings.Contains(r.Source, "FadeIn(group)") {
		t.Fatalf("write style should not fade in:\n%s", r.Source)
	}
}

func TestBuildListDisplay(t *testing.T) {
	r, err := scene.Build(scene.ListDisplay, scene.Values{
		"title":          "Steps",
		"items":          "one\n\n two \nthree",
		"item_animation": "simultaneous",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(r.Source, `items = ["one", "two", "three"]`) {
		t.Fatalf("unexpected items:\n%s", r.Source)
	}
	if !strings.Contains(r.Source, "per_screen = 5") {
		t.Fatalf("expected default per-screen:\n%s", r.Source)
	}
	if !strings.Contains(r.Source, "self.play(*[FadeIn(row) for row in shown])") {
		t.Fatalf("expected simultaneous animation:\n%s", r.Source)
	}
}

func TestTemplatesSorted(t *testing.T) {
	list := scene.Templates()
	if len(list) != 2 || list[0].ID != scene.ListDisplay || list[1].ID != scene.SimpleText {
		t.Fatalf("unexpected catalog order")
	}
}
