package filter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/chain"
)

func newTestChain(t *testing.T, provider AuthenticationProvider, handler FaultHandler) *chain.Chain {
	t.Helper()
	reg := sentinel.NewRegistry()
	reg.MustRegister("Reports.view", sentinel.Require("ROLE_USER", "ROLE_ANONYMOUS"))
	reg.MustRegister("Reports.delete", sentinel.Require("ROLE_ADMIN"))
	eng, err := sentinel.NewEngine(sentinel.WithRuleSource(reg))
	if err != nil {
		t.Fatal(err)
	}

	b := chain.NewBuilder(chain.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	c, err := b.Build([]*chain.Descriptor{
		chain.Use("interceptor", SecurityInterceptor(eng)),
		chain.Use("translation", ExceptionTranslation(handler)),
		chain.Use("anonymous", Anonymous("test-key")),
		chain.Use("context", ContextIntegration(provider)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func principalTarget(ctx context.Context, _ *sentinel.Invocation) (any, error) {
	return sentinel.AuthenticationFrom(ctx).Principal(), nil
}

func staticProvider(auth *sentinel.Authentication) AuthenticationProvider {
	return ProviderFunc(func(context.Context, *sentinel.Invocation) (*sentinel.Authentication, error) {
		return auth, nil
	})
}

func TestStandardChainOrder(t *testing.T) {
	c := newTestChain(t, staticProvider(nil), nil)
	want := []string{"context", "anonymous", "translation", "interceptor"}
	if got := c.Names(); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAuthenticatedCaller(t *testing.T) {
	c := newTestChain(t, staticProvider(sentinel.NewAuthentication("alice", "pw", "ROLE_USER")), nil)

	out, err := c.Invoke(context.Background(), sentinel.NewInvocation("Reports.view"), func(ctx context.Context, inv *sentinel.Invocation) (any, error) {
		auth := sentinel.AuthenticationFrom(ctx)
		if auth.Credentials() != nil {
			t.Fatal("credentials must be erased before the target runs")
		}
		return principalTarget(ctx, inv)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "alice" {
		t.Fatalf("expected alice, got %v", out)
	}
}

func TestAnonymousCaller(t *testing.T) {
	c := newTestChain(t, staticProvider(nil), nil)

	out, err := c.Invoke(context.Background(), sentinel.NewInvocation("Reports.view"), principalTarget)
	if err != nil {
		t.Fatal(err)
	}
	if out != sentinel.AnonymousPrincipal {
		t.Fatalf("expected anonymous principal, got %v", out)
	}
}

func TestExceptionTranslationRouting(t *testing.T) {
	var unauth, denied int
	handler := FaultHandlers{
		Unauthenticated: func(context.Context, *sentinel.Invocation, error) (any, error) {
			unauth++
			return "login", nil
		},
		Denied: func(context.Context, *sentinel.Invocation, error) (any, error) {
			denied++
			return "forbidden", nil
		},
	}

	// Anonymous callers denied access are asked to authenticate.
	anon := newTestChain(t, staticProvider(nil), handler)
	out, err := anon.Invoke(context.Background(), sentinel.NewInvocation("Reports.delete"), principalTarget)
	if err != nil || out != "login" {
		t.Fatalf("expected login, got %v %v", out, err)
	}

	// Authenticated callers get a denial.
	user := newTestChain(t, staticProvider(sentinel.NewAuthentication("alice", nil, "ROLE_USER")), handler)
	out, err = user.Invoke(context.Background(), sentinel.NewInvocation("Reports.delete"), principalTarget)
	if err != nil || out != "forbidden" {
		t.Fatalf("expected forbidden, got %v %v", out, err)
	}

	if unauth != 1 || denied != 1 {
		t.Fatalf("expected one of each, got unauth=%d denied=%d", unauth, denied)
	}
}

func TestExceptionTranslation_MissingCredentials(t *testing.T) {
	f := ExceptionTranslation(FaultHandlers{
		Unauthenticated: func(_ context.Context, _ *sentinel.Invocation, err error) (any, error) {
			if !errors.Is(err, sentinel.ErrCredentialsNotFound) {
				t.Fatalf("unexpected fault %v", err)
			}
			return "login", nil
		},
	})
	out, err := f.Filter(context.Background(), sentinel.NewInvocation("op"), func(context.Context, *sentinel.Invocation) (any, error) {
		return nil, sentinel.ErrCredentialsNotFound
	})
	if err != nil || out != "login" {
		t.Fatalf("expected login, got %v %v", out, err)
	}
}

func TestExceptionTranslation_PassesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	f := ExceptionTranslation(nil)
	_, err := f.Filter(context.Background(), sentinel.NewInvocation("op"), func(context.Context, *sentinel.Invocation) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestContextIntegration_ClearsAfterwards(t *testing.T) {
	var seen *sentinel.SecurityContext
	f := ContextIntegration(staticProvider(sentinel.NewAuthentication("alice", nil)))
	_, err := f.Filter(context.Background(), sentinel.NewInvocation("op"), func(ctx context.Context, _ *sentinel.Invocation) (any, error) {
		seen = sentinel.GetContext(ctx)
		if seen.IsEmpty() {
			t.Fatal("expected populated context downstream")
		}
		return nil, errors.New("target failed")
	})
	if err == nil {
		t.Fatal("expected target error")
	}
	if !seen.IsEmpty() {
		t.Fatal("expected context cleared after the chain returns")
	}
}

func TestAnonymous_ClearsAfterwards(t *testing.T) {
	var seen *sentinel.SecurityContext
	f := Anonymous("test-key")
	_, err := f.Filter(context.Background(), sentinel.NewInvocation("op"), func(ctx context.Context, _ *sentinel.Invocation) (any, error) {
		seen = sentinel.GetContext(ctx)
		if auth := seen.Authentication(); auth == nil || !auth.IsAnonymous() {
			t.Fatalf("expected the anonymous token downstream, got %v", auth)
		}
		return nil, errors.New("target failed")
	})
	if err == nil {
		t.Fatal("expected target error")
	}
	if !seen.IsEmpty() {
		t.Fatal("expected the anonymous slot cleared after the chain returns")
	}
}

func TestAnonymous_KeepsExistingCaller(t *testing.T) {
	ctx, sc := sentinel.WithSecurityContext(context.Background())
	sc.SetAuthentication(sentinel.NewAuthentication("alice", nil))
	out, err := Anonymous("test-key").Filter(ctx, sentinel.NewInvocation("op"), principalTarget)
	if err != nil {
		t.Fatal(err)
	}
	if out != "alice" {
		t.Fatalf("expected alice, got %v", out)
	}
	if sc.IsEmpty() {
		t.Fatal("the caller's own slot must not be cleared")
	}
}

func TestContextIntegration_ProviderError(t *testing.T) {
	bad := errors.New("token expired")
	f := ContextIntegration(ProviderFunc(func(context.Context, *sentinel.Invocation) (*sentinel.Authentication, error) {
		return nil, bad
	}))
	called := false
	_, err := f.Filter(context.Background(), sentinel.NewInvocation("op"), func(context.Context, *sentinel.Invocation) (any, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, bad) || called {
		t.Fatalf("expected provider error and no downstream call, got %v called=%v", err, called)
	}
}

func TestContextIntegration_KeepCredentials(t *testing.T) {
	f := ContextIntegration(staticProvider(sentinel.NewAuthentication("alice", "pw"))).KeepCredentials()
	_, _ = f.Filter(context.Background(), sentinel.NewInvocation("op"), func(ctx context.Context, _ *sentinel.Invocation) (any, error) {
		if sentinel.AuthenticationFrom(ctx).Credentials() != "pw" {
			t.Fatal("expected credentials to be kept")
		}
		return nil, nil
	})
}
