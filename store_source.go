package sentinel

import (
	"context"
	"fmt"
	"sort"

	"github.com/xraph/sentinel/rule"
)

var _ RuleSource = (*StoreSource)(nil)

// StoreSource resolves access rules from persisted rule definitions of the
// tenant bound to the context. Exact operation matches win over patterns;
// among patterns the longest one wins. Definitions sharing the winning key
// are merged.
type StoreSource struct {
	store rule.Store
	limit int
}

// NewStoreSource returns a RuleSource backed by s.
func NewStoreSource(s rule.Store) *StoreSource {
	return &StoreSource{store: s, limit: 10000}
}

// Rules implements RuleSource.
func (s *StoreSource) Rules(ctx context.Context, operation string) ([]AccessRule, error) {
	scope := scopeFromContext(ctx)
	defs, err := s.store.ListRules(ctx, &rule.ListFilter{TenantID: scope.tenantID, Limit: s.limit})
	if err != nil {
		return nil, fmt.Errorf("sentinel: list rules: %w", err)
	}

	var exact []AccessRule
	byPattern := make(map[string][]AccessRule)
	for _, d := range defs {
		if d.AppID != "" && scope.appID != "" && d.AppID != scope.appID {
			continue
		}
		switch {
		case d.Operation == operation:
			exact = append(exact, GroupsFromStrings(d.Groups))
		case isPattern(d.Operation) && matchOperation(d.Operation, operation):
			byPattern[d.Operation] = append(byPattern[d.Operation], GroupsFromStrings(d.Groups))
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}
	if len(byPattern) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(byPattern))
	for k := range byPattern {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return byPattern[keys[0]], nil
}
