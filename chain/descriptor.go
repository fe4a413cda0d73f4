package chain

import (
	"context"
	"fmt"
	"io"

	"github.com/xraph/sentinel"
)

// OrderSpec says where a Descriptor's position comes from: an explicit
// integer, or the delegate's own Ordered implementation.
type OrderSpec struct {
	explicit bool
	n        int
}

// Explicit returns an OrderSpec fixed at n.
func Explicit(n int) OrderSpec { return OrderSpec{explicit: true, n: n} }

// Intrinsic returns an OrderSpec deferring to the delegate.
func Intrinsic() OrderSpec { return OrderSpec{} }

// Value returns the explicit order, if any.
func (o OrderSpec) Value() (int, bool) { return o.n, o.explicit }

func (o OrderSpec) String() string {
	if o.explicit {
		return fmt.Sprintf("explicit(%d)", o.n)
	}
	return "intrinsic"
}

// Descriptor wraps a named filter with an order kept outside the filter.
// Filtering, initialization and closing are forwarded to the delegate
// unchanged.
type Descriptor struct {
	name     string
	delegate Filter
	order    OrderSpec
}

var _ Filter = (*Descriptor)(nil)

// NewDescriptor returns a Descriptor for delegate.
func NewDescriptor(name string, delegate Filter, order OrderSpec) *Descriptor {
	return &Descriptor{name: name, delegate: delegate, order: order}
}

// Use returns an Intrinsic descriptor for a filter that implements Ordered.
func Use(name string, f Filter) *Descriptor { return NewDescriptor(name, f, Intrinsic()) }

// Name returns the filter name.
func (d *Descriptor) Name() string { return d.name }

// Delegate returns the wrapped filter.
func (d *Descriptor) Delegate() Filter { return d.delegate }

// Spec returns the order specification.
func (d *Descriptor) Spec() OrderSpec { return d.order }

// Order resolves the position. An Intrinsic spec over a delegate that does
// not implement Ordered is a *sentinel.ConfigError naming the filter.
func (d *Descriptor) Order() (int, error) {
	if n, ok := d.order.Value(); ok {
		return n, nil
	}
	if o, ok := d.delegate.(Ordered); ok {
		return o.Order(), nil
	}
	return 0, sentinel.NewConfigError(
		fmt.Sprintf("filter %q must implement chain.Ordered or declare one of after, before or position", d.name),
		d.name,
	)
}

// Filter forwards to the delegate.
func (d *Descriptor) Filter(ctx context.Context, inv *sentinel.Invocation, next Handler) (any, error) {
	return d.delegate.Filter(ctx, inv, next)
}

// Init forwards to the delegate if it implements Initializer.
func (d *Descriptor) Init(ctx context.Context) error {
	if i, ok := d.delegate.(Initializer); ok {
		return i.Init(ctx)
	}
	return nil
}

// Close forwards to the delegate if it implements io.Closer.
func (d *Descriptor) Close() error {
	if c, ok := d.delegate.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s[%s]", d.name, d.order)
}
