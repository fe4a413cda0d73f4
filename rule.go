package sentinel

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AccessRule is the requirement declared for a protected operation: a
// disjunction of authority groups. A caller satisfies the rule if it holds
// at least one authority of at least one group. A rule with no non-empty
// group is public.
type AccessRule struct {
	Groups []AuthorityGroup `json:"groups"`
}

// Require returns a rule with a single group built from authorities.
func Require(authorities ...Authority) AccessRule {
	return AccessRule{Groups: []AuthorityGroup{append(AuthorityGroup(nil), authorities...)}}
}

// AnyOf returns a rule with one group per argument.
func AnyOf(groups ...AuthorityGroup) AccessRule {
	out := make([]AuthorityGroup, len(groups))
	for i, g := range groups {
		out[i] = append(AuthorityGroup(nil), g...)
	}
	return AccessRule{Groups: out}
}

// Public returns a rule with no requirements.
func Public() AccessRule { return AccessRule{} }

// IsPublic reports whether the rule has no non-empty group.
func (r AccessRule) IsPublic() bool {
	for _, g := range r.Groups {
		if len(g) > 0 {
			return false
		}
	}
	return true
}

// Authorities returns every authority named by the rule, in order, without
// duplicates.
func (r AccessRule) Authorities() []Authority {
	var all []Authority
	for _, g := range r.Groups {
		all = append(all, g...)
	}
	return normalizeAuthorities(all)
}

// String renders the rule as "A,B|C".
func (r AccessRule) String() string {
	parts := make([]string, len(r.Groups))
	for i, g := range r.Groups {
		parts[i] = joinAuthorities(g)
	}
	return strings.Join(parts, "|")
}

// Merge returns the disjunction of rules.
func Merge(rules ...AccessRule) AccessRule {
	var out AccessRule
	for _, r := range rules {
		out.Groups = append(out.Groups, r.Groups...)
	}
	return out
}

// GroupsFromStrings converts a persisted [][]string group list into a rule.
func GroupsFromStrings(groups [][]string) AccessRule {
	out := AccessRule{Groups: make([]AuthorityGroup, 0, len(groups))}
	for _, g := range groups {
		out.Groups = append(out.Groups, AuthorityGroup(AuthoritiesOf(g...)))
	}
	return out
}

// Strings converts the rule into a [][]string group list.
func (r AccessRule) Strings() [][]string {
	out := make([][]string, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = make([]string, len(g))
		for j, a := range g {
			out[i][j] = string(a)
		}
	}
	return out
}

// RuleSource resolves the access rules declared for an operation. A nil or
// empty result means the operation is unprotected.
type RuleSource interface {
	Rules(ctx context.Context, operation string) ([]AccessRule, error)
}

// RuleSourceFunc adapts a function into a RuleSource.
type RuleSourceFunc func(ctx context.Context, operation string) ([]AccessRule, error)

// Rules calls f.
func (f RuleSourceFunc) Rules(ctx context.Context, operation string) ([]AccessRule, error) {
	return f(ctx, operation)
}

// ──────────────────────────────────────────────────
// Registry
// ──────────────────────────────────────────────────

var _ RuleSource = (*Registry)(nil)

// Registry is an in-memory RuleSource keyed by operation identifier or by
// pattern with a trailing '*'. Exact entries win over patterns; among
// patterns the longest one wins.
//
// Registration happens at startup. After Freeze the registry is read-only.
type Registry struct {
	mu       sync.RWMutex
	exact    map[string]AccessRule
	patterns []patternRule
	frozen   bool
}

type patternRule struct {
	pattern string
	rule    AccessRule
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{exact: make(map[string]AccessRule)}
}

// Register declares rule for an operation or pattern. Registering the same
// key twice is a configuration error.
func (r *Registry) Register(operation string, rule AccessRule) error {
	if operation == "" {
		return NewConfigError("empty operation identifier")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: %s", ErrRegistryFrozen, operation)
	}
	if isPattern(operation) {
		for _, p := range r.patterns {
			if p.pattern == operation {
				return NewConfigError("duplicate rule for pattern "+operation, operation)
			}
		}
		r.patterns = append(r.patterns, patternRule{pattern: operation, rule: rule})
		sort.SliceStable(r.patterns, func(i, j int) bool {
			return len(r.patterns[i].pattern) > len(r.patterns[j].pattern)
		})
		return nil
	}
	if _, ok := r.exact[operation]; ok {
		return NewConfigError("duplicate rule for operation "+operation, operation)
	}
	r.exact[operation] = rule
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(operation string, rule AccessRule) {
	if err := r.Register(operation, rule); err != nil {
		panic(err)
	}
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Rules implements RuleSource.
func (r *Registry) Rules(_ context.Context, operation string) ([]AccessRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rule, ok := r.exact[operation]; ok {
		return []AccessRule{rule}, nil
	}
	for _, p := range r.patterns {
		if matchOperation(p.pattern, operation) {
			return []AccessRule{p.rule}, nil
		}
	}
	return nil, nil
}

// Operations returns the registered keys, exact entries first, sorted.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.exact)+len(r.patterns))
	for k := range r.exact {
		out = append(out, k)
	}
	sort.Strings(out)
	pats := make([]string, 0, len(r.patterns))
	for _, p := range r.patterns {
		pats = append(pats, p.pattern)
	}
	sort.Strings(pats)
	return append(out, pats...)
}

// ──────────────────────────────────────────────────
// Caching and composite sources
// ──────────────────────────────────────────────────

// Sources returns a RuleSource that concatenates the rules of every source.
func Sources(sources ...RuleSource) RuleSource {
	return RuleSourceFunc(func(ctx context.Context, operation string) ([]AccessRule, error) {
		var out []AccessRule
		for _, s := range sources {
			rules, err := s.Rules(ctx, operation)
			if err != nil {
				return nil, err
			}
			out = append(out, rules...)
		}
		return out, nil
	})
}

// CachingSource wraps a RuleSource with a RuleCache keyed by app, tenant
// and operation. Lookup errors are never cached.
type CachingSource struct {
	source RuleSource
	cache  RuleCache
}

var _ RuleSource = (*CachingSource)(nil)

// NewCachingSource returns source fronted by cache.
func NewCachingSource(source RuleSource, cache RuleCache) *CachingSource {
	return &CachingSource{source: source, cache: cache}
}

// Rules implements RuleSource.
func (c *CachingSource) Rules(ctx context.Context, operation string) ([]AccessRule, error) {
	scope := scopeFromContext(ctx)
	key := RuleKey{AppID: scope.appID, TenantID: scope.tenantID, Operation: operation}
	if rules, ok := c.cache.Get(ctx, key); ok {
		return rules, nil
	}
	rules, err := c.source.Rules(ctx, operation)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, rules)
	return rules, nil
}

// Invalidate drops every cached entry for the tenant bound to ctx.
func (c *CachingSource) Invalidate(ctx context.Context) {
	c.cache.InvalidateTenant(ctx, scopeFromContext(ctx).tenantID)
}
