package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xraph/sentinel"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) BuilderOption { return func(b *Builder) { b.logger = l } }

// Builder assembles descriptors into a Chain.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build resolves every descriptor's order, rejects duplicate names and
// shared positions, and returns the descriptors sorted ascending as an
// immutable Chain. Every problem is reported; each is a
// *sentinel.ConfigError.
func (b *Builder) Build(descs []*Descriptor) (*Chain, error) {
	var errs []error
	entries := make([]entry, 0, len(descs))
	names := make(map[string]struct{}, len(descs))
	byOrder := make(map[int][]string, len(descs))

	for _, d := range descs {
		if d == nil {
			continue
		}
		if _, dup := names[d.name]; dup {
			errs = append(errs, sentinel.NewConfigError("duplicate filter name "+d.name, d.name))
			continue
		}
		names[d.name] = struct{}{}

		n, err := d.Order()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		byOrder[n] = append(byOrder[n], d.name)
		entries = append(entries, entry{desc: d, order: n})
	}

	errs = append(errs, collisions(byOrder)...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
	c := &Chain{entries: entries}
	b.logger.Info("sentinel: filter chain built",
		slog.Int("filters", len(entries)),
		slog.Any("order", c.Names()),
	)
	return c, nil
}

type entry struct {
	desc  *Descriptor
	order int
}

// Position is a filter name with its resolved order.
type Position struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// Chain is an ordered, immutable sequence of filters. It is safe for
// concurrent use.
type Chain struct {
	entries []entry
}

// Len returns the number of filters.
func (c *Chain) Len() int { return len(c.entries) }

// Names returns the filter names in chain order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.desc.name
	}
	return out
}

// Positions returns the filter names and orders in chain order.
func (c *Chain) Positions() []Position {
	out := make([]Position, len(c.entries))
	for i, e := range c.entries {
		out[i] = Position{Name: e.desc.name, Order: e.order}
	}
	return out
}

// Then returns a Handler running every filter in order before target.
// A nil target completes with a nil result.
func (c *Chain) Then(target Handler) Handler {
	h := target
	if h == nil {
		h = func(context.Context, *sentinel.Invocation) (any, error) { return nil, nil }
	}
	for i := len(c.entries) - 1; i >= 0; i-- {
		d, next := c.entries[i].desc, h
		h = func(ctx context.Context, inv *sentinel.Invocation) (any, error) {
			return d.Filter(ctx, inv, next)
		}
	}
	return h
}

// Invoke runs inv through the chain and then target.
func (c *Chain) Invoke(ctx context.Context, inv *sentinel.Invocation, target Handler) (any, error) {
	return c.Then(target)(ctx, inv)
}

// Init initializes every filter in chain order, stopping at the first error.
func (c *Chain) Init(ctx context.Context) error {
	for _, e := range c.entries {
		if err := e.desc.Init(ctx); err != nil {
			return fmt.Errorf("sentinel: init filter %s: %w", e.desc.name, err)
		}
	}
	return nil
}

// Close closes every filter in reverse chain order and joins the errors.
func (c *Chain) Close() error {
	var errs []error
	for i := len(c.entries) - 1; i >= 0; i-- {
		if err := c.entries[i].desc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sentinel: close filter %s: %w", c.entries[i].desc.name, err))
		}
	}
	return errors.Join(errs...)
}
