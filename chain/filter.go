// Package chain composes named enforcement filters into one deterministically
// ordered interceptor chain.
//
// Filters are declared with a placement relative to a table of symbolic
// slots (see DefaultSlots), resolved by a Resolver into Descriptors, and
// assembled by a Builder into an immutable Chain:
//
//	descs, err := chain.NewResolver(chain.DefaultSlots()).Resolve([]chain.Declaration{
//		{Name: "audit", Filter: auditFilter, After: chain.SlotFilterSecurityInterceptor},
//	})
//	c, err := chain.NewBuilder().Build(descs)
//	out, err := c.Invoke(ctx, inv, target)
package chain

import (
	"context"

	"github.com/xraph/sentinel"
)

// Handler processes an invocation at the end of, or further along, a chain.
type Handler func(ctx context.Context, inv *sentinel.Invocation) (any, error)

// Filter is one enforcement step. It may short-circuit by returning without
// calling next, or forward to next with its own logic before and after.
type Filter interface {
	Filter(ctx context.Context, inv *sentinel.Invocation, next Handler) (any, error)
}

// FilterFunc adapts a function into a Filter.
type FilterFunc func(ctx context.Context, inv *sentinel.Invocation, next Handler) (any, error)

// Filter calls f.
func (f FilterFunc) Filter(ctx context.Context, inv *sentinel.Invocation, next Handler) (any, error) {
	return f(ctx, inv, next)
}

// Ordered is implemented by filters that carry their own chain position.
type Ordered interface {
	Order() int
}

// Initializer is implemented by filters that need setup before first use.
type Initializer interface {
	Init(ctx context.Context) error
}
