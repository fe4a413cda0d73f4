package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/chain"
)

const sample = `
strategy: consensus
allow_if_equal_granted_denied: true
slots:
  AUDIT_FILTER: 1450
filters:
  - name: audit
    after: FILTER_SECURITY_INTERCEPTOR
  - name: tracing
    ref: trace
    position: AUDIT_FILTER
  - name: early
    before: "150"
rules:
  - operation: "BusinessService.someUser*"
    any_of: [[ROLE_USER]]
  - operation: BusinessService.someAdminMethod
    require: [ROLE_ADMIN]
    any_of: [[ROLE_SUPERVISOR, ROLE_ROOT]]
  - operation: BusinessService.publicMethod
    public: true
`

func noop() chain.Filter {
	return chain.FilterFunc(func(ctx context.Context, inv *sentinel.Invocation, next chain.Handler) (any, error) {
		return next(ctx, inv)
	})
}

func behaviors() map[string]chain.Filter {
	return map[string]chain.Filter{"audit": noop(), "trace": noop(), "early": noop()}
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	cfg := f.EngineConfig()
	if cfg.Strategy != sentinel.StrategyConsensus || !cfg.AllowIfEqualGrantedDenied {
		t.Fatalf("unexpected engine config %+v", cfg)
	}
	if n, ok := f.SlotTable().Slot("AUDIT_FILTER"); !ok || n != 1450 {
		t.Fatalf("expected AUDIT_FILTER at 1450, got %d %v", n, ok)
	}
	if _, ok := f.SlotTable().Slot(chain.SlotAnonymousFilter); !ok {
		t.Fatal("canonical slots missing")
	}
}

func TestParseDefaultsStrategy(t *testing.T) {
	f, err := Parse([]byte("rules: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if f.Strategy != sentinel.StrategyAffirmative {
		t.Fatalf("expected affirmative, got %q", f.Strategy)
	}
	if _, err := Parse(nil); err != nil {
		t.Fatalf("empty file should parse: %v", err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("stratgy: consensus\n")); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestParseValidation(t *testing.T) {
	_, err := Parse([]byte(`
strategy: majority
slots:
  FIRST: 10
rules:
  - operation: ""
    require: [ROLE_USER]
  - operation: A.b
  - operation: A.c
    public: true
    require: [ROLE_USER]
`))
	if !errors.Is(err, sentinel.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 5 {
		t.Fatalf("expected 5 problems, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := f.Registry()
	if err != nil {
		t.Fatal(err)
	}

	rules, _ := reg.Rules(context.Background(), "BusinessService.someUserMethod1")
	if len(rules) != 1 || rules[0].String() != "ROLE_USER" {
		t.Fatalf("unexpected rules %v", rules)
	}
	rules, _ = reg.Rules(context.Background(), "BusinessService.someAdminMethod")
	if len(rules) != 1 || rules[0].String() != "ROLE_ADMIN|ROLE_SUPERVISOR,ROLE_ROOT" {
		t.Fatalf("unexpected admin rule %v", rules)
	}
	rules, _ = reg.Rules(context.Background(), "BusinessService.publicMethod")
	if len(rules) != 1 || !rules[0].IsPublic() {
		t.Fatalf("expected public rule, got %v", rules)
	}
	if err := reg.Register("X.y", sentinel.Public()); !errors.Is(err, sentinel.ErrRegistryFrozen) {
		t.Fatalf("expected frozen registry, got %v", err)
	}
}

func TestRegistryDuplicate(t *testing.T) {
	f, err := Parse([]byte("rules:\n  - {operation: A.b, require: [R]}\n  - {operation: A.b, require: [S]}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Registry(); !errors.Is(err, sentinel.ErrConfiguration) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestChain(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	c, err := f.Chain(behaviors(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []chain.Position{
		{Name: "early", Order: 149},
		{Name: "tracing", Order: 1450},
		{Name: "audit", Order: 1701},
	}
	if got := c.Positions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("positions = %v, want %v", got, want)
	}
}

func TestDeclarationsUnknownBehavior(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.Declarations(map[string]chain.Filter{"audit": noop()})
	var ce *sentinel.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !errors.Is(err, sentinel.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "security.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Rules) != 3 || len(f.Filters) != 3 {
		t.Fatalf("unexpected file %+v", f)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
