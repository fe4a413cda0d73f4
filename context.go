package sentinel

import (
	"context"
	"sync/atomic"
)

type contextKey int

const (
	ctxKeyAppID contextKey = iota
	ctxKeyTenantID
	ctxKeySecurity
)

// WithTenant returns a context with the given app and tenant IDs.
// Use this for standalone mode (without Forge).
func WithTenant(ctx context.Context, appID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyAppID, appID)
	ctx = context.WithValue(ctx, ctxKeyTenantID, tenantID)
	return ctx
}

func appIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyAppID).(string)
	if !ok {
		return ""
	}
	return v
}

func tenantIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyTenantID).(string)
	if !ok {
		return ""
	}
	return v
}

// ──────────────────────────────────────────────────
// SecurityContext
// ──────────────────────────────────────────────────

// SecurityContext holds zero or one Authentication for the execution unit
// that owns the context.Context it is bound to. It is safe for concurrent
// use.
type SecurityContext struct {
	auth atomic.Pointer[Authentication]
}

// Authentication returns the current authentication, or nil.
func (s *SecurityContext) Authentication() *Authentication { return s.auth.Load() }

// SetAuthentication replaces the current authentication. A nil value
// empties the slot.
func (s *SecurityContext) SetAuthentication(a *Authentication) { s.auth.Store(a) }

// IsEmpty reports whether no authentication is set.
func (s *SecurityContext) IsEmpty() bool { return s.auth.Load() == nil }

// Clear empties the slot. Clearing an empty slot is a no-op.
func (s *SecurityContext) Clear() { s.auth.Store(nil) }

// WithSecurityContext binds a fresh, empty SecurityContext to ctx.
func WithSecurityContext(ctx context.Context) (context.Context, *SecurityContext) {
	sc := &SecurityContext{}
	return context.WithValue(ctx, ctxKeySecurity, sc), sc
}

// GetContext returns the SecurityContext bound to ctx. If none is bound it
// returns a new empty one that is not attached to ctx, and an
// authentication set on it is not seen by later lookups. Bind a slot with
// WithSecurityContext, WithAuthentication or RunAs before setting one.
func GetContext(ctx context.Context) *SecurityContext {
	if sc, ok := ctx.Value(ctxKeySecurity).(*SecurityContext); ok {
		return sc
	}
	return &SecurityContext{}
}

// AuthenticationFrom returns the authentication bound to ctx, or nil.
func AuthenticationFrom(ctx context.Context) *Authentication {
	return GetContext(ctx).Authentication()
}

// WithAuthentication binds a new SecurityContext populated with a.
func WithAuthentication(ctx context.Context, a *Authentication) context.Context {
	ctx, sc := WithSecurityContext(ctx)
	sc.SetAuthentication(a)
	return ctx
}

// RunAs runs fn with a SecurityContext holding a. The slot is cleared when
// fn returns or panics.
func RunAs(ctx context.Context, a *Authentication, fn func(ctx context.Context) error) error {
	ctx, sc := WithSecurityContext(ctx)
	sc.SetAuthentication(a)
	defer sc.Clear()
	return fn(ctx)
}
