package scene

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"clipturbo/internal/content"
	"clipturbo/internal/services"
	"clipturbo/internal/textutil"
)

// Values holds template parameter values keyed by parameter name.
type Values map[string]any

// Text returns the named value as a string.
func (v Values) Text(name string) string {
	switch value := v[name].(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

// Number returns the named value as a float64, or zero.
func (v Values) Number(name string) float64 {
	n, _ := toNumber(v[name])
	return n
}

const (
	shortScriptLimit = 100
	listScriptMin    = 200
	subtitleLimit    = 100
)

var namedColors = map[string]struct{}{
	"red":   {},
	"blue":  {},
	"green": {},
	"white": {},
	"black": {},
}

// Select picks a template for the content: short scripts become a title card,
// long multi-line scripts become a list.
func Select(vc *content.VideoContent) string {
	if vc == nil {
		return SimpleText
	}
	length := utf8.RuneCountInString(vc.Script)
	if length < shortScriptLimit {
		return SimpleText
	}
	if strings.Contains(vc.Script, "\n") && length > listScriptMin {
		return ListDisplay
	}
	return SimpleText
}

// PrepareParameters maps content and requirements onto the template's inputs.
// The result still needs Validate.
func PrepareParameters(templateID string, vc *content.VideoContent, req content.Requirements) (Values, error) {
	if vc == nil {
		return nil, services.Wrap(services.ErrValidation, "scene", "prepare parameters", "content is required", nil)
	}
	switch templateID {
	case SimpleText:
		return Values{
			"title":            vc.Title,
			"subtitle":         textutil.Truncate(vc.Script, subtitleLimit),
			"font_size":        orNumber(req.FontSize, 48),
			"text_color":       orText(req.TextColor, "WHITE"),
			"background_color": orText(req.BackgroundColor, "BLACK"),
			"animation_style":  orText(req.AnimationStyle, "fade"),
		}, nil
	case ListDisplay:
		return Values{
			"title":                vc.Title,
			"items":                vc.Script,
			"max_items_per_screen": orNumber(float64(req.MaxItemsPerScreen), 5),
			"item_animation":       orText(req.ItemAnimation, "sequential"),
		}, nil
	default:
		return nil, services.Wrap(services.ErrNotFound, "scene", "prepare parameters", fmt.Sprintf("unknown template %q", templateID), nil)
	}
}

// Validate applies defaults, enforces required parameters and checks each
// value against its type, range and choices. Unknown keys are dropped.
func Validate(templateID string, values Values) (Values, error) {
	tpl, ok := Lookup(templateID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "scene", "validate", fmt.Sprintf("unknown template %q", templateID), nil)
	}
	out := make(Values, len(tpl.Parameters))
	for _, param := range tpl.Parameters {
		value, present := values[param.Name]
		if !present || value == nil {
			value = param.Default
		}
		if value == nil {
			if param.Required {
				return nil, invalid(param, "is required")
			}
			continue
		}
		if param.Required && param.Type == TypeText && strings.TrimSpace(fmt.Sprint(value)) == "" {
			return nil, invalid(param, "is required")
		}
		checked, err := checkValue(param, value)
		if err != nil {
			return nil, err
		}
		out[param.Name] = checked
	}
	return out, nil
}

func checkValue(param Parameter, value any) (any, error) {
	switch param.Type {
	case TypeText:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil
	case TypeNumber:
		n, ok := toNumber(value)
		if !ok {
			return nil, invalid(param, fmt.Sprintf("value %v is not a number", value))
		}
		if param.Min != nil && n < *param.Min {
			return nil, invalid(param, fmt.Sprintf("value %g is below minimum %g", n, *param.Min))
		}
		if param.Max != nil && n > *param.Max {
			return nil, invalid(param, fmt.Sprintf("value %g is above maximum %g", n, *param.Max))
		}
		return n, nil
	case TypeBool:
		return toBool(value), nil
	case TypeChoice:
		s := fmt.Sprint(value)
		for _, choice := range param.Choices {
			if s == choice {
				return s, nil
			}
		}
		return nil, invalid(param, fmt.Sprintf("value %q is not one of %s", s, strings.Join(param.Choices, ", ")))
	case TypeColor:
		s, ok := value.(string)
		if ok && isColor(s) {
			return s, nil
		}
		return nil, invalid(param, fmt.Sprintf("invalid colour %v", value))
	default:
		return value, nil
	}
}

func isColor(value string) bool {
	if strings.HasPrefix(value, "#") {
		return true
	}
	_, ok := namedColors[strings.ToLower(value)]
	return ok
}

func invalid(param Parameter, message string) error {
	return services.Wrap(services.ErrValidation, "scene", "validate", fmt.Sprintf("parameter %q %s", param.Name, message), nil)
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		n, ok := toNumber(v)
		return ok && n != 0
	}
}

func orText(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func orNumber(value, fallback float64) float64 {
	if value > 0 {
		return value
	}
	return fallback
}
