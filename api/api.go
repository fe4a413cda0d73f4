// Package api provides HTTP handlers for the Sentinel access decision engine.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/chain"
)

// Option configures an API.
type Option func(*API)

// WithChain exposes the given filter chain on GET /v1/chain.
func WithChain(c *chain.Chain) Option { return func(a *API) { a.chain = c } }

// API wires all Sentinel HTTP handlers together.
type API struct {
	eng    *sentinel.Engine
	chain  *chain.Chain
	router forge.Router
}

// New creates an API from an Engine and a Forge router.
func New(eng *sentinel.Engine, router forge.Router, opts ...Option) *API {
	a := &API{eng: eng, router: router}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("sentinel: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
// Rule and audit routes are registered only when the engine has a store.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerDecideRoutes,
	}
	if a.eng.Store() != nil {
		registerers = append(registerers, a.registerRuleRoutes, a.registerAuditRoutes)
	}
	if a.chain != nil {
		registerers = append(registerers, a.registerChainRoutes)
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
