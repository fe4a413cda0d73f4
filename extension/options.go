package extension

import (
	"log/slog"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/chain"
	"github.com/xraph/sentinel/plugin"
	"github.com/xraph/sentinel/store"
)

// ExtOption configures the Sentinel Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, sentinel.WithStore(s))
	}
}

// WithRuleSource sets the rule source, for example a frozen sentinel.Registry.
func WithRuleSource(src sentinel.RuleSource) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, sentinel.WithRuleSource(src))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...sentinel.Option) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opts...)
	}
}

// WithChain exposes a filter chain through the API and initializes it on
// start.
func WithChain(c *chain.Chain) ExtOption {
	return func(e *Extension) {
		e.chain = c
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
