// Package extension provides a Forge extension entry point for Sentinel.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/api"
	"github.com/xraph/sentinel/chain"
	"github.com/xraph/sentinel/plugin"
	"github.com/xraph/sentinel/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "sentinel"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Method-level access decision engine with ordered interceptor chains"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Sentinel as a Forge extension.
type Extension struct {
	config     Config
	eng        *sentinel.Engine
	chain      *chain.Chain
	apiHandler *api.API
	logger     *slog.Logger
	engineOpts []sentinel.Option
	plugins    []plugin.Plugin
}

// New creates a Sentinel Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying Sentinel engine.
func (e *Extension) Engine() *sentinel.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*sentinel.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("sentinel: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	eng, err := e.buildEngine(func() (store.Store, bool) {
		s, err := forge.Inject[store.Store](fapp.Container())
		return s, err == nil
	})
	if err != nil {
		return err
	}
	e.eng = eng

	var apiOpts []api.Option
	if e.chain != nil {
		apiOpts = append(apiOpts, api.WithChain(e.chain))
	}
	e.apiHandler = api.New(eng, fapp.Router(), apiOpts...)

	if !e.config.DisableRoutes {
		router := fapp.Router()
		if e.config.BasePath != "" {
			router = router.Group(e.config.BasePath)
		}
		if err := e.apiHandler.RegisterRoutes(router); err != nil {
			return fmt.Errorf("sentinel: register routes: %w", err)
		}
	}

	return nil
}

// buildEngine assembles engine options in precedence order: logger and
// config first, then a container-provided store, then user options.
func (e *Extension) buildEngine(injectStore func() (store.Store, bool)) (*sentinel.Engine, error) {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := make([]sentinel.Option, 0, len(e.engineOpts)+len(e.plugins)+3)
	opts = append(opts, sentinel.WithLogger(logger), sentinel.WithConfig(e.config.Engine))

	if injectStore != nil {
		if s, ok := injectStore(); ok {
			opts = append(opts, sentinel.WithStore(s))
		}
	}

	opts = append(opts, e.engineOpts...)

	for _, x := range e.plugins {
		opts = append(opts, sentinel.WithPlugin(x))
	}

	eng, err := sentinel.NewEngine(opts...)
	if err != nil {
		return nil, fmt.Errorf("sentinel: create engine: %w", err)
	}
	return eng, nil
}

// Start runs migrations if enabled, initializes the filter chain and
// starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("sentinel: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if s := e.eng.Store(); s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("sentinel: migration failed: %w", err)
			}
		}
	}

	if e.chain != nil {
		if err := e.chain.Init(ctx); err != nil {
			return err
		}
	}

	return e.eng.Start(ctx)
}

// Stop closes the filter chain and shuts down the engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	var errs []error
	if e.chain != nil {
		errs = append(errs, e.chain.Close())
	}
	errs = append(errs, e.eng.Stop(ctx))
	return errors.Join(errs...)
}

// Health implements [forge.Extension]. An engine without a store is
// healthy.
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("sentinel: extension not initialized")
	}
	if s := e.eng.Store(); s != nil {
		return s.Ping(ctx)
	}
	return nil
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all sentinel API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
