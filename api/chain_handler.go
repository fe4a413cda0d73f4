package api

import (
	"net/http"

	"github.com/xraph/forge"
)

func (a *API) registerChainRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("chain"))

	return g.GET("/chain", a.describeChain,
		forge.WithSummary("Describe filter chain"),
		forge.WithDescription("Returns the configured filters in execution order with their positions."),
		forge.WithOperationID("describeChain"),
		forge.WithResponseSchema(http.StatusOK, "Filter chain", ChainResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) describeChain(ctx forge.Context, _ *struct{}) (*ChainResponse, error) {
	positions := a.chain.Positions()
	resp := &ChainResponse{Filters: make([]FilterInfo, len(positions))}
	for i, p := range positions {
		resp.Filters[i] = FilterInfo{Name: p.Name, Order: p.Order}
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
