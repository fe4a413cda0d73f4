package rule

import (
	"context"
	"errors"

	"github.com/xraph/sentinel/id"
)

// Store defines persistence operations for rule definitions.
type Store interface {
	// CreateRule persists a new rule.
	CreateRule(ctx context.Context, d *Definition) error

	// GetRule retrieves a rule by ID.
	GetRule(ctx context.Context, ruleID id.RuleID) (*Definition, error)

	// UpdateRule persists changes to a rule.
	UpdateRule(ctx context.Context, d *Definition) error

	// DeleteRule removes a rule by ID.
	DeleteRule(ctx context.Context, ruleID id.RuleID) error

	// ListRules returns rules matching the filter, newest first.
	ListRules(ctx context.Context, filter *ListFilter) ([]*Definition, error)

	// CountRules returns the number of rules matching the filter.
	CountRules(ctx context.Context, filter *ListFilter) (int64, error)

	// DeleteRulesByTenant removes all rules for a tenant.
	DeleteRulesByTenant(ctx context.Context, tenantID string) error
}

// ErrNotFound is returned by stores when a rule does not exist.
var ErrNotFound = errors.New("sentinel: rule not found")
