package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clipturbo/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "render", "launch", "spawn failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"render", "launch", "spawn failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestDetailsStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "scene", "validate", "font_size out of range", nil)
	details := services.Details(err)
	if details.Kind != "validation_error" {
		t.Fatalf("unexpected kind %q", details.Kind)
	}
	if details.Message != "scene: validate: font_size out of range" {
		t.Fatalf("unexpected message %q", details.Message)
	}

	plain := services.Details(errors.New("plain failure"))
	if plain.Kind != "unknown" || plain.Message != "plain failure" {
		t.Fatalf("unexpected details for plain error: %+v", plain)
	}

	if empty := services.Details(nil); empty.Message != "" {
		t.Fatalf("expected empty details for nil error, got %+v", empty)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithWorkflowID(ctx, "workflow_1")
	ctx = services.WithStep(ctx, "scene_creation")
	ctx = services.WithJobID(ctx, "render_1")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.WorkflowIDFromContext(ctx); !ok || id != "workflow_1" {
		t.Fatalf("workflow id = %q, %v", id, ok)
	}
	if step, ok := services.StepFromContext(ctx); !ok || step != "scene_creation" {
		t.Fatalf("step = %q, %v", step, ok)
	}
	if job, ok := services.JobIDFromContext(ctx); !ok || job != "render_1" {
		t.Fatalf("job id = %q, %v", job, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}

	if _, ok := services.StepFromContext(services.WithStep(context.Background(), "")); ok {
		t.Fatal("expected empty step to be ignored")
	}
}
