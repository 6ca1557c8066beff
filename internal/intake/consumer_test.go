package intake_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipturbo/internal/content"
	"clipturbo/internal/intake"
	"clipturbo/internal/workflow"
)

type scriptedPopper struct {
	mu    sync.Mutex
	items []popResult
	calls int
}

type popResult struct {
	raw string
	err error
}

func (p *scriptedPopper) Pop(ctx context.Context) (string, error) {
	p.mu.Lock()
	p.calls++
	if len(p.items) > 0 {
		next := p.items[0]
		p.items = p.items[1:]
		p.mu.Unlock()
		return next.raw, next.err
	}
	p.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

type createCall struct {
	in  workflow.Input
	req content.Requirements
	id  string
}

type fakeCreator struct {
	mu    sync.Mutex
	calls []createCall
	err   error
	seen  chan struct{}
}

func (c *fakeCreator) Create(_ context.Context, in workflow.Input, req content.Requirements, opts ...workflow.CreateOption) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := "workflow_generated"
	if len(opts) > 0 {
		id = "workflow_custom"
	}
	c.calls = append(c.calls, createCall{in: in, req: req, id: id})
	c.seen <- struct{}{}
	return id, c.err
}

func TestConsumerCreatesWorkflowsAndSkipsBadPayloads(t *testing.T) {
	popper := &scriptedPopper{items: []popResult{
		{err: errors.New("connection refused")},
		{raw: ""},
		{raw: `{"topic": ""}`},
		{raw: `not json {`},
		{raw: `{"topic": "why cats purr", "requirements": {"quality": "low"}}`},
		{raw: `{"workflow_id": "wf-1", "content": {"title": "Hi", "script": "Hello there"}}`},
	}}
	creator := &fakeCreator{seen: make(chan struct{}, 4)}
	consumer := intake.NewConsumer(popper, creator, nil, intake.WithRetryDelay(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	for range 2 {
		select {
		case <-creator.seen:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for workflow creation")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	creator.mu.Lock()
	defer creator.mu.Unlock()
	if len(creator.calls) != 2 {
		t.Fatalf("expected two creations, got %d", len(creator.calls))
	}
	first := creator.calls[0]
	if first.in.Topic != "why cats purr" || first.req.Quality != "low" || first.id != "workflow_generated" {
		t.Fatalf("unexpected first call %+v", first)
	}
	second := creator.calls[1]
	if second.in.Content == nil || second.in.Content.Script != "Hello there" || second.id != "workflow_custom" {
		t.Fatalf("unexpected second call %+v", second)
	}
}

func TestConsumerSurvivesCreateErrors(t *testing.T) {
	popper := &scriptedPopper{items: []popResult{
		{raw: `{"topic": "one"}`},
		{raw: `{"topic": "two"}`},
	}}
	creator := &fakeCreator{seen: make(chan struct{}, 2), err: errors.New("duplicate")}
	consumer := intake.NewConsumer(popper, creator, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Run(ctx) }()
	for range 2 {
		select {
		case <-creator.seen:
		case <-time.After(5 * time.Second):
			t.Fatal("consumer stopped after a create error")
		}
	}
}

func TestConsumerStopsWhenContextEnds(t *testing.T) {
	consumer := intake.NewConsumer(&scriptedPopper{}, &fakeCreator{seen: make(chan struct{}, 1)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := consumer.Run(ctx); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}
