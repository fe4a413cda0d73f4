// Package filter provides the standard enforcement filters. Each one
// implements chain.Ordered at its canonical slot so it can be added with
// chain.Use.
package filter

import (
	"context"
	"errors"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/chain"
)

var defaultSlots = chain.DefaultSlots()

func slot(name string) int { return defaultSlots[name] }

// Compile-time interface checks.
var (
	_ chain.Ordered = (*ContextIntegrationFilter)(nil)
	_ chain.Ordered = (*AnonymousFilter)(nil)
	_ chain.Ordered = (*ExceptionTranslationFilter)(nil)
	_ chain.Ordered = (*SecurityInterceptorFilter)(nil)
)

// ──────────────────────────────────────────────────
// Context integration
// ──────────────────────────────────────────────────

// AuthenticationProvider resolves the caller of an invocation. It returns
// nil and no error for a caller that presented no credentials.
type AuthenticationProvider interface {
	Authenticate(ctx context.Context, inv *sentinel.Invocation) (*sentinel.Authentication, error)
}

// ProviderFunc adapts a function into an AuthenticationProvider.
type ProviderFunc func(ctx context.Context, inv *sentinel.Invocation) (*sentinel.Authentication, error)

// Authenticate calls f.
func (f ProviderFunc) Authenticate(ctx context.Context, inv *sentinel.Invocation) (*sentinel.Authentication, error) {
	return f(ctx, inv)
}

// ContextIntegrationFilter binds a fresh SecurityContext for the rest of the
// chain, fills it from a provider and clears it on the way out.
type ContextIntegrationFilter struct {
	provider AuthenticationProvider
	erase    bool
}

// ContextIntegration returns a ContextIntegrationFilter using provider.
func ContextIntegration(provider AuthenticationProvider) *ContextIntegrationFilter {
	return &ContextIntegrationFilter{provider: provider, erase: true}
}

// KeepCredentials stops the filter from erasing credentials before
// storing the authentication.
func (f *ContextIntegrationFilter) KeepCredentials() *ContextIntegrationFilter {
	f.erase = false
	return f
}

// Order returns the SESSION_CONTEXT_INTEGRATION_FILTER slot.
func (f *ContextIntegrationFilter) Order() int { return slot(chain.SlotSessionContextIntegration) }

// Filter implements chain.Filter.
func (f *ContextIntegrationFilter) Filter(ctx context.Context, inv *sentinel.Invocation, next chain.Handler) (any, error) {
	ctx, sc := sentinel.WithSecurityContext(ctx)
	defer sc.Clear()

	if f.provider != nil {
		auth, err := f.provider.Authenticate(ctx, inv)
		if err != nil {
			return nil, err
		}
		if auth != nil && f.erase {
			auth = auth.WithoutCredentials()
		}
		sc.SetAuthentication(auth)
	}
	return next(ctx, inv)
}

// ──────────────────────────────────────────────────
// Anonymous
// ──────────────────────────────────────────────────

// AnonymousFilter supplies the anonymous authentication when the caller
// is not authenticated. The slot it binds is cleared on the way out.
type AnonymousFilter struct {
	key         string
	authorities []sentinel.Authority
}

// Anonymous returns an AnonymousFilter. With no authorities the token holds
// ROLE_ANONYMOUS.
func Anonymous(key string, authorities ...sentinel.Authority) *AnonymousFilter {
	return &AnonymousFilter{key: key, authorities: authorities}
}

// Order returns the ANONYMOUS_FILTER slot.
func (f *AnonymousFilter) Order() int { return slot(chain.SlotAnonymousFilter) }

// Filter implements chain.Filter.
func (f *AnonymousFilter) Filter(ctx context.Context, inv *sentinel.Invocation, next chain.Handler) (any, error) {
	if sentinel.AuthenticationFrom(ctx) != nil {
		return next(ctx, inv)
	}
	ctx, sc := sentinel.WithSecurityContext(ctx)
	defer sc.Clear()
	sc.SetAuthentication(sentinel.Anonymous(f.key, f.authorities...))
	return next(ctx, inv)
}

// ──────────────────────────────────────────────────
// Exception translation
// ──────────────────────────────────────────────────

// FaultHandler turns access faults raised downstream into responses.
type FaultHandler interface {
	// OnUnauthenticated handles a missing or anonymous authentication.
	OnUnauthenticated(ctx context.Context, inv *sentinel.Invocation, err error) (any, error)

	// OnAccessDenied handles an authenticated caller being denied.
	OnAccessDenied(ctx context.Context, inv *sentinel.Invocation, err error) (any, error)
}

// FaultHandlers is a FaultHandler built from optional functions. A nil
// function returns the fault unchanged.
type FaultHandlers struct {
	Unauthenticated func(ctx context.Context, inv *sentinel.Invocation, err error) (any, error)
	Denied          func(ctx context.Context, inv *sentinel.Invocation, err error) (any, error)
}

// OnUnauthenticated implements FaultHandler.
func (h FaultHandlers) OnUnauthenticated(ctx context.Context, inv *sentinel.Invocation, err error) (any, error) {
	if h.Unauthenticated == nil {
		return nil, err
	}
	return h.Unauthenticated(ctx, inv, err)
}

// OnAccessDenied implements FaultHandler.
func (h FaultHandlers) OnAccessDenied(ctx context.Context, inv *sentinel.Invocation, err error) (any, error) {
	if h.Denied == nil {
		return nil, err
	}
	return h.Denied(ctx, inv, err)
}

// ExceptionTranslationFilter routes access faults from the rest of the
// chain to a FaultHandler. Other errors pass through.
type ExceptionTranslationFilter struct {
	handler FaultHandler
}

// ExceptionTranslation returns an ExceptionTranslationFilter for handler.
func ExceptionTranslation(handler FaultHandler) *ExceptionTranslationFilter {
	if handler == nil {
		handler = FaultHandlers{}
	}
	return &ExceptionTranslationFilter{handler: handler}
}

// Order returns the EXCEPTION_TRANSLATION_FILTER slot.
func (f *ExceptionTranslationFilter) Order() int { return slot(chain.SlotExceptionTranslation) }

// Filter implements chain.Filter.
func (f *ExceptionTranslationFilter) Filter(ctx context.Context, inv *sentinel.Invocation, next chain.Handler) (any, error) {
	out, err := next(ctx, inv)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, sentinel.ErrCredentialsNotFound):
		return f.handler.OnUnauthenticated(ctx, inv, err)
	case errors.Is(err, sentinel.ErrAccessDenied):
		if auth := sentinel.AuthenticationFrom(ctx); auth == nil || auth.IsAnonymous() {
			return f.handler.OnUnauthenticated(ctx, inv, err)
		}
		return f.handler.OnAccessDenied(ctx, inv, err)
	}
	return out, err
}

// ──────────────────────────────────────────────────
// Security interceptor
// ──────────────────────────────────────────────────

// Enforcer decides whether the caller bound to ctx may perform inv.
// *sentinel.Engine implements it.
type Enforcer interface {
	Enforce(ctx context.Context, inv *sentinel.Invocation) error
}

var _ Enforcer = (*sentinel.Engine)(nil)

// SecurityInterceptorFilter enforces access before forwarding.
type SecurityInterceptorFilter struct {
	enforcer Enforcer
}

// SecurityInterceptor returns a SecurityInterceptorFilter for e.
func SecurityInterceptor(e Enforcer) *SecurityInterceptorFilter {
	return &SecurityInterceptorFilter{enforcer: e}
}

// Order returns the FILTER_SECURITY_INTERCEPTOR slot.
func (f *SecurityInterceptorFilter) Order() int { return slot(chain.SlotFilterSecurityInterceptor) }

// Filter implements chain.Filter.
func (f *SecurityInterceptorFilter) Filter(ctx context.Context, inv *sentinel.Invocation, next chain.Handler) (any, error) {
	if err := f.enforcer.Enforce(ctx, inv); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return next(ctx, inv)
}
