package sentinel

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/rule"
	"github.com/xraph/sentinel/store/memory"
)

// businessService counts how often its protected methods actually run.
type businessService struct {
	calls int
}

func (b *businessService) someUserMethod1(_ context.Context) (string, error) {
	b.calls++
	return "user", nil
}

func (b *businessService) someAdminMethod(_ context.Context) (string, error) {
	b.calls++
	return "admin", nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Register("BusinessService.someUser*", Require("ROLE_USER")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("BusinessService.someAdminMethod", Require("ROLE_ADMIN")); err != nil {
		t.Fatal(err)
	}
	reg.Freeze()
	return reg
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithRuleSource(newTestRegistry(t))}, opts...)
	eng, err := NewEngine(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestNewEngine_RequiresRuleSource(t *testing.T) {
	_, err := NewEngine()
	if !errors.Is(err, ErrRuleSourceRequired) {
		t.Fatalf("expected ErrRuleSourceRequired, got %v", err)
	}
}

func TestNewEngine_RejectsUnknownStrategy(t *testing.T) {
	_, err := NewEngine(WithRuleSource(NewRegistry()), WithStrategy("majority"))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestProtect_NoAuthentication(t *testing.T) {
	eng := newTestEngine(t)
	svc := &businessService{}

	_, err := Protect(context.Background(), eng, "BusinessService.someUserMethod1", svc.someUserMethod1)
	if !errors.Is(err, ErrCredentialsNotFound) {
		t.Fatalf("expected ErrCredentialsNotFound, got %v", err)
	}
	if svc.calls != 0 {
		t.Fatalf("target ran %d times without authentication", svc.calls)
	}
}

func TestProtect_AuthorizedCaller(t *testing.T) {
	eng := newTestEngine(t)
	svc := &businessService{}

	err := RunAs(context.Background(), NewAuthentication("alice", "secret", "ROLE_USER"), func(ctx context.Context) error {
		out, err := Protect(ctx, eng, "BusinessService.someUserMethod1", svc.someUserMethod1)
		if err != nil {
			return err
		}
		if out != "user" {
			t.Fatalf("expected target result to propagate, got %q", out)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if svc.calls != 1 {
		t.Fatalf("expected exactly one call, got %d", svc.calls)
	}
}

func TestProtect_WrongAuthority(t *testing.T) {
	eng := newTestEngine(t)
	svc := &businessService{}
	ctx := WithAuthentication(context.Background(), NewAuthentication("bob", nil, "ROLE_OTHER"))

	_, err := Protect(ctx, eng, "BusinessService.someUserMethod1", svc.someUserMethod1)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected *AccessDeniedError, got %T", err)
	}
	if denied.Operation != "BusinessService.someUserMethod1" {
		t.Fatalf("unexpected operation %q", denied.Operation)
	}
	if denied.Result == nil || denied.Result.Allowed {
		t.Fatal("expected a denying result")
	}
	if svc.calls != 0 {
		t.Fatalf("target ran %d times after denial", svc.calls)
	}
}

func TestProtect_NoAuthorities(t *testing.T) {
	eng := newTestEngine(t)
	svc := &businessService{}
	ctx := WithAuthentication(context.Background(), NewAuthentication("carol", nil))

	_, err := Protect(ctx, eng, "BusinessService.someAdminMethod", svc.someAdminMethod)
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected *AccessDeniedError, got %v", err)
	}
	if denied.Result.Decision != DecisionDenyNoAuthorities {
		t.Fatalf("expected %s, got %s", DecisionDenyNoAuthorities, denied.Result.Decision)
	}
}

func TestInvoke_TargetErrorPropagates(t *testing.T) {
	eng := newTestEngine(t)
	ctx := WithAuthentication(context.Background(), NewAuthentication("alice", nil, "ROLE_USER"))
	boom := errors.New("boom")

	_, err := eng.Invoke(ctx, NewInvocation("BusinessService.someUserMethod2"), func(context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected target error, got %v", err)
	}
}

func TestInvoke_CancelledContext(t *testing.T) {
	eng := newTestEngine(t)
	ctx, cancel := context.WithCancel(WithAuthentication(context.Background(), NewAuthentication("alice", nil, "ROLE_USER")))
	cancel()

	called := false
	_, err := eng.Invoke(ctx, NewInvocation("BusinessService.someUserMethod1"), func(context.Context) (any, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatal("target ran with a cancelled context")
	}
}

func TestInvoke_NestedCallsRecheck(t *testing.T) {
	eng := newTestEngine(t)
	svc := &businessService{}
	ctx := WithAuthentication(context.Background(), NewAuthentication("alice", nil, "ROLE_USER"))

	_, err := eng.Invoke(ctx, NewInvocation("BusinessService.someUserMethod1"), func(ctx context.Context) (any, error) {
		return Protect(ctx, eng, "BusinessService.someAdminMethod", svc.someAdminMethod)
	})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected nested call to be denied, got %v", err)
	}
	if svc.calls != 0 {
		t.Fatal("nested target ran without ROLE_ADMIN")
	}
}

func TestCheck_UnprotectedOperation(t *testing.T) {
	ctx := WithAuthentication(context.Background(), NewAuthentication("alice", nil, "ROLE_USER"))

	eng := newTestEngine(t)
	result, err := eng.Check(ctx, NewInvocation("Other.method"))
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed || result.Decision != DecisionAllowPublic {
		t.Fatalf("expected public allow, got %s", result.Decision)
	}

	strict := newTestEngine(t, WithConfig(Config{RejectPublicInvocations: true}))
	result, err = strict.Check(ctx, NewInvocation("Other.method"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed || result.Decision != DecisionDenyUnprotected {
		t.Fatalf("expected %s, got %s", DecisionDenyUnprotected, result.Decision)
	}
}

func TestCheck_RequiresOperation(t *testing.T) {
	eng := newTestEngine(t)
	ctx := WithAuthentication(context.Background(), NewAuthentication("alice", nil, "ROLE_USER"))
	for _, inv := range []*Invocation{nil, {}} {
		_, err := eng.Check(ctx, inv)
		if !errors.Is(err, ErrInvalidInvocation) {
			t.Fatalf("expected ErrInvalidInvocation, got %v", err)
		}
		if errors.Is(err, ErrConfiguration) {
			t.Fatal("a dispatch-time fault must not match ErrConfiguration")
		}
	}
}

func TestCanI(t *testing.T) {
	eng := newTestEngine(t)

	ok, err := eng.CanI(context.Background(), "BusinessService.someAdminMethod")
	if err != nil || ok {
		t.Fatalf("expected false without authentication, got %v, %v", ok, err)
	}

	ctx := WithAuthentication(context.Background(), NewAuthentication("root", nil, "ROLE_ADMIN"))
	ok, err = eng.CanI(ctx, "BusinessService.someAdminMethod")
	if err != nil || !ok {
		t.Fatalf("expected true for ROLE_ADMIN, got %v, %v", ok, err)
	}
}

func TestEngine_VoterError(t *testing.T) {
	failing := VoterFunc("failing", func(context.Context, *DecisionRequest) (Vote, error) {
		return VoteAbstain, errors.New("policy backend down")
	})
	eng := newTestEngine(t, WithVoter(failing))
	ctx := WithAuthentication(context.Background(), NewAuthentication("alice", nil, "ROLE_USER"))

	if _, err := eng.Check(ctx, NewInvocation("BusinessService.someUserMethod1")); err == nil {
		t.Fatal("expected voter error to abort the decision")
	}
}

func TestEngine_StoreBackedRulesAndAudit(t *testing.T) {
	ctx := WithTenant(context.Background(), "app1", "t1")
	s := memory.New()

	_ = s.CreateRule(ctx, &rule.Definition{
		ID:        id.NewRuleID(),
		TenantID:  "t1",
		Operation: "Reports.*",
		Groups:    [][]string{{"ROLE_ANALYST"}},
	})
	_ = s.CreateRule(ctx, &rule.Definition{
		ID:        id.NewRuleID(),
		TenantID:  "t1",
		Operation: "Reports.export",
		Groups:    [][]string{{"ROLE_EXPORT"}},
	})

	eng, err := NewEngine(WithStore(s))
	if err != nil {
		t.Fatal(err)
	}

	analyst := WithAuthentication(ctx, NewAuthentication("ann", nil, "ROLE_ANALYST"))
	if err := eng.Enforce(analyst, NewInvocation("Reports.view")); err != nil {
		t.Fatalf("expected pattern rule to allow, got %v", err)
	}
	if err := eng.Enforce(analyst, NewInvocation("Reports.export")); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected exact rule to win and deny, got %v", err)
	}

	// Another tenant has no rules, so operations are public there.
	other := WithAuthentication(WithTenant(context.Background(), "app1", "t2"), NewAuthentication("ann", nil))
	if err := eng.Enforce(other, NewInvocation("Reports.export")); err != nil {
		t.Fatalf("expected public operation in t2, got %v", err)
	}

	entries, err := s.ListAuditEntries(ctx, &audit.QueryFilter{TenantID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries for t1, got %d", len(entries))
	}
	denied, _ := s.CountAuditEntries(ctx, &audit.QueryFilter{TenantID: "t1", Decision: string(DecisionDeny)})
	if denied != 1 {
		t.Fatalf("expected 1 denied entry, got %d", denied)
	}
}

func TestEngine_AuditDenialsOnly(t *testing.T) {
	s := memory.New()
	eng := newTestEngine(t, WithAuditStore(s), WithConfig(Config{AuditDenialsOnly: true}))
	ctx := WithAuthentication(context.Background(), NewAuthentication("alice", nil, "ROLE_USER"))

	_ = eng.Enforce(ctx, NewInvocation("BusinessService.someUserMethod1"))
	_ = eng.Enforce(ctx, NewInvocation("BusinessService.someAdminMethod"))

	n, _ := s.CountAuditEntries(ctx, nil)
	if n != 1 {
		t.Fatalf("expected only the denial to be audited, got %d entries", n)
	}
}

type deniedRecorder struct {
	denied  int
	missing int
	stopped bool
}

func (d *deniedRecorder) Name() string { return "denied-recorder" }

func (d *deniedRecorder) OnAccessDenied(_ context.Context, _, _ any) error {
	d.denied++
	return nil
}

func (d *deniedRecorder) OnCredentialsNotFound(_ context.Context, _ any) error {
	d.missing++
	return nil
}

func (d *deniedRecorder) OnShutdown(_ context.Context) error {
	d.stopped = true
	return nil
}

func TestEngine_PluginHooks(t *testing.T) {
	rec := &deniedRecorder{}
	eng := newTestEngine(t, WithPlugin(rec))

	_ = eng.Enforce(context.Background(), NewInvocation("BusinessService.someAdminMethod"))
	ctx := WithAuthentication(context.Background(), NewAuthentication("alice", nil, "ROLE_USER"))
	_ = eng.Enforce(ctx, NewInvocation("BusinessService.someAdminMethod"))
	_ = eng.Enforce(ctx, NewInvocation("BusinessService.someUserMethod1"))

	if rec.missing != 1 {
		t.Fatalf("expected 1 credentials-not-found event, got %d", rec.missing)
	}
	if rec.denied != 1 {
		t.Fatalf("expected 1 access-denied event, got %d", rec.denied)
	}

	if err := eng.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !rec.stopped {
		t.Fatal("expected shutdown hook on Stop")
	}
}

type countingCache struct {
	entries map[RuleKey][]AccessRule
	hits    int
}

func (c *countingCache) Get(_ context.Context, key RuleKey) ([]AccessRule, bool) {
	r, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return r, ok
}

func (c *countingCache) Set(_ context.Context, key RuleKey, rules []AccessRule) {
	c.entries[key] = rules
}

func (c *countingCache) InvalidateTenant(_ context.Context, tenantID string) {
	for k := range c.entries {
		if k.TenantID == tenantID {
			delete(c.entries, k)
		}
	}
}

func TestEngine_RuleCache(t *testing.T) {
	lookups := 0
	src := RuleSourceFunc(func(context.Context, string) ([]AccessRule, error) {
		lookups++
		return []AccessRule{Require("ROLE_USER")}, nil
	})
	cache := &countingCache{entries: map[RuleKey][]AccessRule{}}
	eng, err := NewEngine(WithRuleSource(src), WithRuleCache(cache))
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithTenant(context.Background(), "app", "t1")
	ctx = WithAuthentication(ctx, NewAuthentication("alice", nil, "ROLE_USER"))
	for range 3 {
		if err := eng.Enforce(ctx, NewInvocation("Svc.op")); err != nil {
			t.Fatal(err)
		}
	}
	if lookups != 1 || cache.hits != 2 {
		t.Fatalf("expected 1 lookup and 2 hits, got %d and %d", lookups, cache.hits)
	}

	eng.InvalidateRules(ctx)
	_ = eng.Enforce(ctx, NewInvocation("Svc.op"))
	if lookups != 2 {
		t.Fatalf("expected lookup after invalidation, got %d", lookups)
	}
}

func TestEngine_RuleCacheSeparatesApps(t *testing.T) {
	s := memory.New()
	bg := context.Background()
	_ = s.CreateRule(bg, &rule.Definition{
		ID: id.NewRuleID(), TenantID: "t1", AppID: "appA",
		Operation: "Reports.view", Groups: [][]string{{"ROLE_ADMIN"}},
	})
	_ = s.CreateRule(bg, &rule.Definition{
		ID: id.NewRuleID(), TenantID: "t1", AppID: "appB",
		Operation: "Reports.view", Groups: [][]string{{"ROLE_USER"}},
	})

	cache := &countingCache{entries: map[RuleKey][]AccessRule{}}
	eng, err := NewEngine(WithStore(s), WithRuleCache(cache))
	if err != nil {
		t.Fatal(err)
	}

	admin := WithAuthentication(WithTenant(bg, "appA", "t1"), NewAuthentication("root", nil, "ROLE_ADMIN"))
	if err := eng.Enforce(admin, NewInvocation("Reports.view")); err != nil {
		t.Fatalf("expected appA admin to be allowed, got %v", err)
	}

	user := WithAuthentication(WithTenant(bg, "appB", "t1"), NewAuthentication("ann", nil, "ROLE_USER"))
	if err := eng.Enforce(user, NewInvocation("Reports.view")); err != nil {
		t.Fatalf("expected appB user to be allowed by appB's rule, got %v", err)
	}
	if cache.hits != 0 {
		t.Fatalf("appB must not hit appA's cache entry, got %d hits", cache.hits)
	}
	if len(cache.entries) != 2 {
		t.Fatalf("expected one cache entry per app, got %d", len(cache.entries))
	}

	eng.InvalidateRules(user)
	if len(cache.entries) != 0 {
		t.Fatalf("expected tenant invalidation to clear both apps, got %d entries", len(cache.entries))
	}
}
