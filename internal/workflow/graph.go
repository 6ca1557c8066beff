package workflow

import (
	"fmt"
	"slices"
	"strings"

	"clipturbo/internal/services"
)

// StepSpec declares one node of a workflow graph. The step name doubles as
// its identifier.
type StepSpec struct {
	Name      string
	Kind      Kind
	DependsOn []string
}

// AIPath is the graph used when the caller supplies only a topic.
func AIPath() []StepSpec {
	return renderPath(KindContentGeneration)
}

// UserPath is the graph used when the caller supplies structured content.
func UserPath() []StepSpec {
	return renderPath(KindContentPreparation)
}

func renderPath(source Kind) []StepSpec {
	src := string(source)
	return []StepSpec{
		{Name: src, Kind: source},
		{Name: string(KindTemplateSelection), Kind: KindTemplateSelection, DependsOn: []string{src}},
		{Name: string(KindParameterPreparation), Kind: KindParameterPreparation, DependsOn: []string{src, string(KindTemplateSelection)}},
		{Name: string(KindSceneCreation), Kind: KindSceneCreation, DependsOn: []string{string(KindParameterPreparation)}},
		{Name: string(KindVideoRendering), Kind: KindVideoRendering, DependsOn: []string{string(KindSceneCreation)}},
		{Name: string(KindPostProcessing), Kind: KindPostProcessing, DependsOn: []string{string(KindVideoRendering)}},
	}
}

// GraphFor picks the topology for an input shape.
func GraphFor(in Input) []StepSpec {
	if in.UserProvided() {
		return UserPath()
	}
	return AIPath()
}

// validateGraph rejects duplicate names, dangling dependencies, kinds without
// a handler, and write conflicts between steps that may run concurrently.
// Cycles are left for the scheduler to report as a deadlock.
func validateGraph(specs []StepSpec, handlers map[Kind]Handler) error {
	if len(specs) == 0 {
		return services.Wrap(services.ErrValidation, "workflow", "build graph", "graph has no steps", nil)
	}
	index := make(map[string]StepSpec, len(specs))
	for _, spec := range specs {
		if strings.TrimSpace(spec.Name) == "" {
			return services.Wrap(services.ErrValidation, "workflow", "build graph", "step name is required", nil)
		}
		if _, dup := index[spec.Name]; dup {
			return services.Wrap(services.ErrValidation, "workflow", "build graph", fmt.Sprintf("duplicate step %q", spec.Name), nil)
		}
		if _, ok := handlers[spec.Kind]; !ok {
			return services.Wrap(services.ErrConfiguration, "workflow", "build graph", fmt.Sprintf("no handler registered for %q", spec.Kind), nil)
		}
		index[spec.Name] = spec
	}
	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			if _, ok := index[dep]; !ok {
				return services.Wrap(services.ErrValidation, "workflow", "build graph",
					fmt.Sprintf("step %q depends on unknown step %q", spec.Name, dep), nil)
			}
		}
	}

	ancestors := make(map[string]map[string]bool, len(specs))
	for _, spec := range specs {
		ancestors[spec.Name] = collectAncestors(spec.Name, index)
	}
	for i, a := range specs {
		_, writesA := handlers[a.Kind].Access()
		for _, b := range specs[i+1:] {
			if ancestors[a.Name][b.Name] || ancestors[b.Name][a.Name] {
				continue
			}
			_, writesB := handlers[b.Kind].Access()
			for _, field := range writesA {
				if slices.Contains(writesB, field) {
					return services.Wrap(services.ErrValidation, "workflow", "build graph",
						fmt.Sprintf("steps %q and %q may run concurrently but both write %q", a.Name, b.Name, field), nil)
				}
			}
		}
	}
	return nil
}

// collectAncestors walks dependencies transitively; the visited set keeps
// cyclic graphs finite.
func collectAncestors(name string, index map[string]StepSpec) map[string]bool {
	seen := make(map[string]bool)
	stack := slices.Clone(index[name].DependsOn)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[current] {
			continue
		}
		seen[current] = true
		stack = append(stack, index[current].DependsOn...)
	}
	return seen
}
