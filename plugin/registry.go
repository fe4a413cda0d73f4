package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/rule"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeDecisionEntry struct {
	name string
	hook BeforeDecision
}
type afterDecisionEntry struct {
	name string
	hook AfterDecision
}
type accessDeniedEntry struct {
	name string
	hook AccessDenied
}
type credentialsNotFoundEntry struct {
	name string
	hook CredentialsNotFound
}
type ruleCreatedEntry struct {
	name string
	hook RuleCreated
}
type ruleUpdatedEntry struct {
	name string
	hook RuleUpdated
}
type ruleDeletedEntry struct {
	name string
	hook RuleDeleted
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeDecision      []beforeDecisionEntry
	afterDecision       []afterDecisionEntry
	accessDenied        []accessDeniedEntry
	credentialsNotFound []credentialsNotFoundEntry
	ruleCreated         []ruleCreatedEntry
	ruleUpdated         []ruleUpdatedEntry
	ruleDeleted         []ruleDeletedEntry
	shutdown            []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeDecision); ok {
		r.beforeDecision = append(r.beforeDecision, beforeDecisionEntry{name, h})
	}
	if h, ok := p.(AfterDecision); ok {
		r.afterDecision = append(r.afterDecision, afterDecisionEntry{name, h})
	}
	if h, ok := p.(AccessDenied); ok {
		r.accessDenied = append(r.accessDenied, accessDeniedEntry{name, h})
	}
	if h, ok := p.(CredentialsNotFound); ok {
		r.credentialsNotFound = append(r.credentialsNotFound, credentialsNotFoundEntry{name, h})
	}
	if h, ok := p.(RuleCreated); ok {
		r.ruleCreated = append(r.ruleCreated, ruleCreatedEntry{name, h})
	}
	if h, ok := p.(RuleUpdated); ok {
		r.ruleUpdated = append(r.ruleUpdated, ruleUpdatedEntry{name, h})
	}
	if h, ok := p.(RuleDeleted); ok {
		r.ruleDeleted = append(r.ruleDeleted, ruleDeletedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Decision event emitters
// ──────────────────────────────────────────────────

// EmitBeforeDecision notifies all plugins that implement BeforeDecision.
func (r *Registry) EmitBeforeDecision(ctx context.Context, req any) {
	for _, e := range r.beforeDecision {
		if err := e.hook.OnBeforeDecision(ctx, req); err != nil {
			r.logHookError("OnBeforeDecision", e.name, err)
		}
	}
}

// EmitAfterDecision notifies all plugins that implement AfterDecision.
func (r *Registry) EmitAfterDecision(ctx context.Context, req, result any) {
	for _, e := range r.afterDecision {
		if err := e.hook.OnAfterDecision(ctx, req, result); err != nil {
			r.logHookError("OnAfterDecision", e.name, err)
		}
	}
}

// EmitAccessDenied notifies all plugins that implement AccessDenied.
func (r *Registry) EmitAccessDenied(ctx context.Context, req, result any) {
	for _, e := range r.accessDenied {
		if err := e.hook.OnAccessDenied(ctx, req, result); err != nil {
			r.logHookError("OnAccessDenied", e.name, err)
		}
	}
}

// EmitCredentialsNotFound notifies all plugins that implement CredentialsNotFound.
func (r *Registry) EmitCredentialsNotFound(ctx context.Context, inv any) {
	for _, e := range r.credentialsNotFound {
		if err := e.hook.OnCredentialsNotFound(ctx, inv); err != nil {
			r.logHookError("OnCredentialsNotFound", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Rule event emitters
// ──────────────────────────────────────────────────

// EmitRuleCreated notifies all plugins that implement RuleCreated.
func (r *Registry) EmitRuleCreated(ctx context.Context, d *rule.Definition) {
	for _, e := range r.ruleCreated {
		if err := e.hook.OnRuleCreated(ctx, d); err != nil {
			r.logHookError("OnRuleCreated", e.name, err)
		}
	}
}

// EmitRuleUpdated notifies all plugins that implement RuleUpdated.
func (r *Registry) EmitRuleUpdated(ctx context.Context, d *rule.Definition) {
	for _, e := range r.ruleUpdated {
		if err := e.hook.OnRuleUpdated(ctx, d); err != nil {
			r.logHookError("OnRuleUpdated", e.name, err)
		}
	}
}

// EmitRuleDeleted notifies all plugins that implement RuleDeleted.
func (r *Registry) EmitRuleDeleted(ctx context.Context, ruleID id.RuleID) {
	for _, e := range r.ruleDeleted {
		if err := e.hook.OnRuleDeleted(ctx, ruleID); err != nil {
			r.logHookError("OnRuleDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
