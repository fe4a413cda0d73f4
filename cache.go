package sentinel

import "context"

// RuleKey identifies one cached rule lookup.
type RuleKey struct {
	AppID     string
	TenantID  string
	Operation string
}

// RuleCache caches resolved access rules per app, tenant and operation.
type RuleCache interface {
	// Get returns the cached rules for a key, if available. A cached nil
	// slice is a hit meaning the operation is unprotected.
	Get(ctx context.Context, key RuleKey) ([]AccessRule, bool)

	// Set stores the rules resolved for a key.
	Set(ctx context.Context, key RuleKey, rules []AccessRule)

	// InvalidateTenant removes all cached rules for a tenant, across every
	// app.
	InvalidateTenant(ctx context.Context, tenantID string)
}
