package sentinel

import (
	"log/slog"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/plugin"
	"github.com/xraph/sentinel/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithRuleSource sets where access rules are resolved from.
func WithRuleSource(s RuleSource) Option { return func(e *Engine) { e.rules = s } }

// WithStore sets the composite store. Unless WithRuleSource is given, rules
// are resolved from the store. Decisions are audited into it unless
// WithAuditStore overrides that.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithAuditStore sets where decisions are recorded.
func WithAuditStore(s audit.Store) Option { return func(e *Engine) { e.audit = s } }

// WithRuleCache fronts the rule source with a cache.
func WithRuleCache(c RuleCache) Option { return func(e *Engine) { e.cache = c } }

// WithVoter adds a voter consulted on every non-public decision.
func WithVoter(v Voter) Option { return func(e *Engine) { e.voters = append(e.voters, v) } }

// WithStrategy sets the vote combination strategy.
func WithStrategy(s Strategy) Option { return func(e *Engine) { e.config.Strategy = s } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
