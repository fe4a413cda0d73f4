package extension

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/store"
	"github.com/xraph/sentinel/store/memory"
)

func TestBuildEngineRequiresRules(t *testing.T) {
	e := New()
	if _, err := e.buildEngine(nil); !errors.Is(err, sentinel.ErrRuleSourceRequired) {
		t.Fatalf("expected ErrRuleSourceRequired, got %v", err)
	}
}

func TestBuildEngineUsesInjectedStore(t *testing.T) {
	s := memory.New()
	e := New()
	eng, err := e.buildEngine(func() (store.Store, bool) { return s, true })
	if err != nil {
		t.Fatal(err)
	}
	if eng.Store() != store.Store(s) {
		t.Fatal("expected the injected store")
	}
}

func TestBuildEngineAppliesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Strategy = sentinel.StrategyUnanimous
	e := New(WithConfig(cfg), WithRuleSource(sentinel.NewRegistry()))
	eng, err := e.buildEngine(nil)
	if err != nil {
		t.Fatal(err)
	}
	if eng.Decisions().Strategy() != sentinel.StrategyUnanimous {
		t.Fatalf("expected unanimous, got %s", eng.Decisions().Strategy())
	}
}

func TestLifecycleWithoutRegister(t *testing.T) {
	e := New(WithRuleSource(sentinel.NewRegistry()))
	if err := e.Start(context.Background()); err == nil {
		t.Fatal("expected error before Register")
	}
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("stop before register: %v", err)
	}
	if err := e.Health(context.Background()); err == nil {
		t.Fatal("expected health error before Register")
	}
}
