package steps

import (
	"context"

	"clipturbo/internal/scene"
	"clipturbo/internal/services"
	"clipturbo/internal/workflow"
)

type templateSelection struct{}

func (templateSelection) Kind() workflow.Kind { return workflow.KindTemplateSelection }

func (templateSelection) Access() ([]workflow.Field, []workflow.Field) {
	return []workflow.Field{workflow.FieldContent}, []workflow.Field{workflow.FieldTemplate}
}

func (templateSelection) Run(_ context.Context, wc *workflow.Context) (any, error) {
	vc := wc.Content()
	if vc == nil {
		return nil, services.Wrap(services.ErrValidation, "template_selection", "select", "no content available", nil)
	}
	id := scene.Select(vc)
	wc.SetTemplate(id)
	return id, nil
}

type parameterPreparation struct{}

func (parameterPreparation) Kind() workflow.Kind { return workflow.KindParameterPreparation }

func (parameterPreparation) Access() ([]workflow.Field, []workflow.Field) {
	return []workflow.Field{workflow.FieldContent, workflow.FieldTemplate, workflow.FieldRequirements},
		[]workflow.Field{workflow.FieldParameters}
}

func (parameterPreparation) Run(_ context.Context, wc *workflow.Context) (any, error) {
	vc := wc.Content()
	if vc == nil {
		return nil, services.Wrap(services.ErrValidation, "parameter_preparation", "prepare", "no content available", nil)
	}
	values, err := scene.PrepareParameters(wc.Template(), vc, wc.Requirements())
	if err != nil {
		return nil, err
	}
	validated, err := scene.Validate(wc.Template(), values)
	if err != nil {
		return nil, err
	}
	wc.SetParameters(validated)
	return validated, nil
}

type sceneCreation struct{}

func (sceneCreation) Kind() workflow.Kind { return workflow.KindSceneCreation }

func (sceneCreation) Access() ([]workflow.Field, []workflow.Field) {
	return []workflow.Field{workflow.FieldTemplate, workflow.FieldParameters}, []workflow.Field{workflow.FieldScene}
}

func (sceneCreation) Run(_ context.Context, wc *workflow.Context) (any, error) {
	r, err := scene.Build(wc.Template(), wc.Parameters())
	if err != nil {
		return nil, err
	}
	wc.SetScene(r)
	return r.TemplateID, nil
}
