// Package plugin defines the plugin system for Sentinel.
// Plugins are notified of lifecycle events (decision made, access denied,
// rule created, etc.) and can react with logging, metrics or alerting.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/rule"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Decision lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeDecision is called before the votes for an invocation are cast.
// The req parameter is *sentinel.DecisionRequest (passed as any to avoid
// an import cycle).
type BeforeDecision interface {
	OnBeforeDecision(ctx context.Context, req any) error
}

// AfterDecision is called after a decision is made.
// The req parameter is *sentinel.DecisionRequest; result is *sentinel.Result.
type AfterDecision interface {
	OnAfterDecision(ctx context.Context, req, result any) error
}

// AccessDenied is called after a decision denied an invocation.
type AccessDenied interface {
	OnAccessDenied(ctx context.Context, req, result any) error
}

// CredentialsNotFound is called when a protected operation is invoked
// without authentication. The inv parameter is *sentinel.Invocation.
type CredentialsNotFound interface {
	OnCredentialsNotFound(ctx context.Context, inv any) error
}

// ──────────────────────────────────────────────────
// Rule lifecycle hooks
// ──────────────────────────────────────────────────

// RuleCreated is called after a rule definition is created.
type RuleCreated interface {
	OnRuleCreated(ctx context.Context, d *rule.Definition) error
}

// RuleUpdated is called after a rule definition is updated.
type RuleUpdated interface {
	OnRuleUpdated(ctx context.Context, d *rule.Definition) error
}

// RuleDeleted is called after a rule definition is deleted.
type RuleDeleted interface {
	OnRuleDeleted(ctx context.Context, ruleID id.RuleID) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
