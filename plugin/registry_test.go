package plugin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/rule"
)

// testPlugin implements Plugin + RuleCreated + AfterDecision + AccessDenied.
type testPlugin struct {
	ruleCreatedCalled   bool
	afterDecisionCalled bool
	deniedCalls         int
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRuleCreated(_ context.Context, _ *rule.Definition) error {
	t.ruleCreatedCalled = true
	return nil
}

func (t *testPlugin) OnAfterDecision(_ context.Context, _, _ any) error {
	t.afterDecisionCalled = true
	return nil
}

func (t *testPlugin) OnAccessDenied(_ context.Context, _, _ any) error {
	t.deniedCalls++
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

// failingPlugin returns an error from its shutdown hook.
type failingPlugin struct{}

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnShutdown(_ context.Context) error { return errors.New("boom") }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	reg.EmitRuleCreated(ctx, &rule.Definition{ID: id.NewRuleID(), Operation: "Svc.op"})
	if !tp.ruleCreatedCalled {
		t.Fatal("OnRuleCreated was not called")
	}

	reg.EmitAfterDecision(ctx, nil, nil)
	if !tp.afterDecisionCalled {
		t.Fatal("OnAfterDecision was not called")
	}

	reg.EmitAccessDenied(ctx, nil, nil)
	reg.EmitAccessDenied(ctx, nil, nil)
	if tp.deniedCalls != 2 {
		t.Fatalf("expected 2 OnAccessDenied calls, got %d", tp.deniedCalls)
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeDecision(ctx, nil)
	reg.EmitCredentialsNotFound(ctx, nil)
	reg.EmitRuleDeleted(ctx, id.NewRuleID())
	reg.EmitShutdown(ctx)
}

func TestRegistryHookErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	reg.Register(&failingPlugin{})

	reg.EmitShutdown(context.Background())

	out := buf.String()
	if !strings.Contains(out, "OnShutdown") || !strings.Contains(out, "failing") {
		t.Fatalf("expected hook error to be logged, got %q", out)
	}
}
