package content

import (
	"sort"
	"strings"
)

// Style describes the voice a generated script should take.
type Style struct {
	Name        string
	Description string
	Tone        string
	Structure   string
	Keywords    []string
}

var styles = map[string]Style{
	"default": {
		Name:        "Default",
		Description: "general-purpose short video",
		Tone:        "casual",
		Structure:   "narrative",
		Keywords:    []string{"interesting", "practical", "sharing"},
	},
	"educational": {
		Name:        "Educational",
		Description: "knowledge sharing video",
		Tone:        "professional",
		Structure:   "tutorial",
		Keywords:    []string{"learning", "knowledge", "tips", "methods"},
	},
	"entertainment": {
		Name:        "Entertainment",
		Description: "light entertainment video",
		Tone:        "humorous",
		Structure:   "narrative",
		Keywords:    []string{"funny", "interesting", "entertaining", "relaxed"},
	},
	"lifestyle": {
		Name:        "Lifestyle",
		Description: "everyday life sharing video",
		Tone:        "casual",
		Structure:   "list",
		Keywords:    []string{"life", "sharing", "experience", "recommendation"},
	},
	"business": {
		Name:        "Business",
		Description: "product and marketing video",
		Tone:        "professional",
		Structure:   "qa",
		Keywords:    []string{"product", "service", "advantage", "value"},
	},
}

// LookupStyle returns the named style, falling back to the default style for
// unknown names.
func LookupStyle(name string) Style {
	if style, ok := styles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return style
	}
	return styles[DefaultStyle]
}

// StyleNames lists the known style identifiers in sorted order.
func StyleNames() []string {
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
