package sentinel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/plugin"
	"github.com/xraph/sentinel/store"
)

// Engine is the authorization interceptor. It reads the caller from the
// SecurityContext, resolves the operation's rules, asks the
// DecisionManager and either lets the invocation proceed or fails it.
type Engine struct {
	rules     RuleSource
	store     store.Store
	audit     audit.Store
	cache     RuleCache
	voters    []Voter
	decisions *DecisionManager
	plugins   *plugin.Registry
	logger    *slog.Logger
	config    Config
}

// NewEngine creates a new Sentinel engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rules == nil && e.store != nil {
		e.rules = NewStoreSource(e.store)
	}
	if e.rules == nil {
		return nil, ErrRuleSourceRequired
	}
	if e.audit == nil && e.store != nil {
		e.audit = e.store
	}
	strategy, err := ParseStrategy(string(e.config.Strategy))
	if err != nil {
		return nil, err
	}
	e.config.Strategy = strategy
	if e.cache != nil {
		e.rules = NewCachingSource(e.rules, e.cache)
	}
	e.decisions = NewDecisionManager(e.config, e.voters...)
	return e, nil
}

// Store returns the composite store (may be nil).
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Rules returns the rule source in use.
func (e *Engine) Rules() RuleSource { return e.rules }

// Decisions returns the decision manager.
func (e *Engine) Decisions() *DecisionManager { return e.decisions }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.config }

// InvalidateRules drops cached rules for the tenant bound to ctx.
func (e *Engine) InvalidateRules(ctx context.Context) {
	if e.cache != nil {
		e.cache.InvalidateTenant(ctx, scopeFromContext(ctx).tenantID)
	}
}

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// Check decides whether the caller bound to ctx may perform inv. A denial
// is reported through the Result, not the error. The error is non-nil when
// inv names no operation (ErrInvalidInvocation), no authentication is
// present (ErrCredentialsNotFound), or a rule source or voter fails.
func (e *Engine) Check(ctx context.Context, inv *Invocation) (*Result, error) {
	if inv == nil || inv.Operation == "" {
		return nil, fmt.Errorf("%w: no operation", ErrInvalidInvocation)
	}

	auth := AuthenticationFrom(ctx)
	if auth == nil {
		if e.plugins != nil {
			e.plugins.EmitCredentialsNotFound(ctx, inv)
		}
		e.logger.Debug("sentinel: no authentication",
			slog.String("operation", inv.Operation),
		)
		return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, inv.Operation)
	}

	rules, err := e.rules.Rules(ctx, inv.Operation)
	if err != nil {
		return nil, fmt.Errorf("sentinel: resolve rules for %s: %w", inv.Operation, err)
	}

	req := &DecisionRequest{Authentication: auth, Invocation: inv, Rule: Merge(rules...)}
	if e.plugins != nil {
		e.plugins.EmitBeforeDecision(ctx, req)
	}

	var result *Result
	if len(rules) == 0 && e.config.RejectPublicInvocations {
		result = &Result{
			Decision: DecisionDenyUnprotected,
			Reason:   "operation has no registered rule",
			Strategy: e.decisions.Strategy(),
		}
	} else {
		result, err = e.decisions.Decide(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	if e.plugins != nil {
		e.plugins.EmitAfterDecision(ctx, req, result)
		if !result.Allowed {
			e.plugins.EmitAccessDenied(ctx, req, result)
		}
	}
	e.logger.Debug("sentinel: decision",
		slog.String("operation", inv.Operation),
		slog.String("principal", auth.Principal()),
		slog.String("decision", string(result.Decision)),
		slog.Bool("allowed", result.Allowed),
	)
	e.record(ctx, auth, inv, result)

	return result, nil
}

// Enforce returns nil if the caller may perform inv, an *AccessDeniedError
// if not, or the error from Check.
func (e *Engine) Enforce(ctx context.Context, inv *Invocation) error {
	result, err := e.Check(ctx, inv)
	if err != nil {
		return err
	}
	if !result.Allowed {
		return &AccessDeniedError{Operation: inv.Operation, Result: result}
	}
	return nil
}

// Invoke enforces access to inv and, if allowed, calls target. The target's
// result and error are returned unchanged. The target is never called when
// access is refused or ctx is already done.
func (e *Engine) Invoke(ctx context.Context, inv *Invocation, target func(ctx context.Context) (any, error)) (any, error) {
	if err := e.Enforce(ctx, inv); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return target(ctx)
}

// Protect enforces access to operation and calls fn if allowed.
func Protect[T any](ctx context.Context, e *Engine, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := e.Enforce(ctx, NewInvocation(operation)); err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return fn(ctx)
}

// CanI reports whether the caller bound to ctx may perform operation.
// A missing authentication is reported as false without error.
func (e *Engine) CanI(ctx context.Context, operation string) (bool, error) {
	result, err := e.Check(ctx, NewInvocation(operation))
	if errors.Is(err, ErrCredentialsNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

func (e *Engine) record(ctx context.Context, auth *Authentication, inv *Invocation, result *Result) {
	if e.audit == nil || (result.Allowed && e.config.AuditDenialsOnly) {
		return
	}
	scope := scopeFromContext(ctx)
	entry := &audit.Entry{
		ID:          id.NewAuditID(),
		TenantID:    scope.tenantID,
		AppID:       scope.appID,
		Principal:   auth.Principal(),
		Operation:   inv.Operation,
		Authorities: authorityStrings(auth.authorities),
		Allowed:     result.Allowed,
		Decision:    string(result.Decision),
		Reason:      result.Reason,
		EvalTimeNs:  result.EvalTimeNs,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.audit.CreateAuditEntry(ctx, entry); err != nil {
		e.logger.Warn("sentinel: audit write failed",
			slog.String("operation", inv.Operation),
			slog.String("error", err.Error()),
		)
	}
}

func authorityStrings(as []Authority) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = string(a)
	}
	return out
}
