// Package middleware provides forge HTTP middleware that enforces Sentinel
// access rules on routes.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/chain"
)

// Authenticator resolves the caller of a request. A nil Authentication
// with a nil error means the request is unauthenticated.
type Authenticator func(ctx forge.Context) (*sentinel.Authentication, error)

// Option configures the middleware.
type Option func(*options)

type options struct {
	authenticate Authenticator
	anonymous    bool
}

// WithAuthenticator sets how the caller is resolved. The default uses the
// forge user ID with no authorities.
func WithAuthenticator(fn Authenticator) Option {
	return func(o *options) { o.authenticate = fn }
}

// WithAnonymous lets unauthenticated requests through as the anonymous
// caller, so rules granting ROLE_ANONYMOUS apply.
func WithAnonymous() Option {
	return func(o *options) { o.anonymous = true }
}

func newOptions(opts []Option) *options {
	o := &options{authenticate: UserAuthenticator}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// UserAuthenticator resolves the forge user ID set by an upstream
// authentication layer. It grants no authorities.
func UserAuthenticator(ctx forge.Context) (*sentinel.Authentication, error) {
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return sentinel.NewAuthentication(userID, nil), nil
	}
	return nil, nil
}

// Protect enforces the rules registered for operation before calling the
// route handler. An authentication already bound to the request context
// takes precedence over the Authenticator. The handler runs with the
// caller bound to its request context, so protected calls it makes are
// checked against the same caller.
func Protect(eng *sentinel.Engine, operation string, opts ...Option) forge.Middleware {
	o := newOptions(opts)
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			rctx, err := o.bind(ctx)
			if err != nil {
				return errorResponse(ctx, http.StatusUnauthorized, "authentication failed")
			}
			inv := invocation(ctx, operation)
			if err := eng.Enforce(rctx, inv); err != nil {
				return deny(ctx, err)
			}
			ctx.WithContext(rctx)
			return next(ctx)
		}
	}
}

// Chain runs the request through a filter chain before calling the route
// handler. The chain is responsible for enforcement, typically through
// filter.SecurityInterceptor. The handler runs with the context the chain
// hands to its target.
func Chain(c *chain.Chain, operation string, opts ...Option) forge.Middleware {
	o := newOptions(opts)
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			rctx, err := o.bind(ctx)
			if err != nil {
				return errorResponse(ctx, http.StatusUnauthorized, "authentication failed")
			}
			var handlerErr error
			_, err = c.Invoke(rctx, invocation(ctx, operation), func(inner context.Context, _ *sentinel.Invocation) (any, error) {
				ctx.WithContext(inner)
				handlerErr = next(ctx)
				return nil, nil
			})
			if err != nil {
				return deny(ctx, err)
			}
			return handlerErr
		}
	}
}

func (o *options) bind(ctx forge.Context) (context.Context, error) {
	rctx := ctx.Context()
	if sentinel.AuthenticationFrom(rctx) != nil {
		return rctx, nil
	}
	auth, err := o.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if auth == nil && o.anonymous {
		auth = sentinel.Anonymous("middleware")
	}
	if auth == nil {
		return rctx, nil
	}
	return sentinel.WithAuthentication(rctx, auth), nil
}

func invocation(ctx forge.Context, operation string) *sentinel.Invocation {
	inv := sentinel.NewInvocation(operation)
	if id := ctx.Param("id"); id != "" {
		inv.Attributes = map[string]any{"id": id}
	}
	return inv
}

func deny(ctx forge.Context, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrCredentialsNotFound):
		return errorResponse(ctx, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, sentinel.ErrAccessDenied):
		return errorResponse(ctx, http.StatusForbidden, "access denied")
	}
	return err
}

func errorResponse(ctx forge.Context, status int, msg string) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(status)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": msg})
}
