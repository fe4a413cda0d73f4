package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/rule"
)

func (a *API) registerRuleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("rules"))

	if err := g.POST("/rules", a.createRule,
		forge.WithSummary("Create rule"),
		forge.WithDescription("Declares the authorities required for an operation or pattern."),
		forge.WithOperationID("createRule"),
		forge.WithRequestSchema(CreateRuleRequest{}),
		forge.WithCreatedResponse(&rule.Definition{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/rules/:ruleId", a.getRule,
		forge.WithSummary("Get rule"),
		forge.WithDescription("Returns details of a specific rule."),
		forge.WithOperationID("getRule"),
		forge.WithResponseSchema(http.StatusOK, "Rule details", &rule.Definition{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/rules/:ruleId", a.updateRule,
		forge.WithSummary("Update rule"),
		forge.WithDescription("Updates an existing rule."),
		forge.WithOperationID("updateRule"),
		forge.WithRequestSchema(UpdateRuleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated rule", &rule.Definition{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/rules/:ruleId", a.deleteRule,
		forge.WithSummary("Delete rule"),
		forge.WithDescription("Deletes a rule."),
		forge.WithOperationID("deleteRule"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/rules", a.listRules,
		forge.WithSummary("List rules"),
		forge.WithDescription("Lists rules with optional filters."),
		forge.WithOperationID("listRules"),
		forge.WithRequestSchema(ListRulesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Rule list", ListResponse[*rule.Definition]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRule(ctx forge.Context, req *CreateRuleRequest) (*rule.Definition, error) {
	if req.Operation == "" {
		return nil, forge.BadRequest("operation is required")
	}
	if err := validateGroups(req.Groups); err != nil {
		return nil, err
	}

	appID, tenantID := sentinel.TenantFrom(ctx.Context())
	d := &rule.Definition{
		ID:          id.NewRuleID(),
		TenantID:    tenantID,
		AppID:       appID,
		Operation:   req.Operation,
		Groups:      req.Groups,
		Description: req.Description,
		Metadata:    req.Metadata,
	}

	if err := a.eng.Store().CreateRule(ctx.Context(), d); err != nil {
		return nil, mapError(err)
	}
	a.eng.InvalidateRules(ctx.Context())

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitRuleCreated(ctx.Context(), d)
	}

	return d, ctx.JSON(http.StatusCreated, d)
}

func (a *API) getRule(ctx forge.Context, _ *GetRuleRequest) (*rule.Definition, error) {
	ruleID, err := id.ParseRuleID(ctx.Param("ruleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid rule ID: %v", err))
	}

	d, err := a.eng.Store().GetRule(ctx.Context(), ruleID)
	if err != nil {
		return nil, mapError(err)
	}

	return d, ctx.JSON(http.StatusOK, d)
}

func (a *API) updateRule(ctx forge.Context, req *UpdateRuleRequest) (*rule.Definition, error) {
	ruleID, err := id.ParseRuleID(ctx.Param("ruleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid rule ID: %v", err))
	}

	d, err := a.eng.Store().GetRule(ctx.Context(), ruleID)
	if err != nil {
		return nil, mapError(err)
	}

	if req.Operation != "" {
		d.Operation = req.Operation
	}
	if req.Groups != nil {
		if err := validateGroups(req.Groups); err != nil {
			return nil, err
		}
		d.Groups = req.Groups
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.Metadata != nil {
		d.Metadata = req.Metadata
	}

	if err := a.eng.Store().UpdateRule(ctx.Context(), d); err != nil {
		return nil, mapError(err)
	}
	a.eng.InvalidateRules(ctx.Context())

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitRuleUpdated(ctx.Context(), d)
	}

	return d, ctx.JSON(http.StatusOK, d)
}

func (a *API) deleteRule(ctx forge.Context, _ *GetRuleRequest) (*struct{}, error) {
	ruleID, err := id.ParseRuleID(ctx.Param("ruleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid rule ID: %v", err))
	}

	if err := a.eng.Store().DeleteRule(ctx.Context(), ruleID); err != nil {
		return nil, mapError(err)
	}
	a.eng.InvalidateRules(ctx.Context())

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitRuleDeleted(ctx.Context(), ruleID)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRules(ctx forge.Context, req *ListRulesRequest) (*ListResponse[*rule.Definition], error) {
	_, tenantID := sentinel.TenantFrom(ctx.Context())
	filter := &rule.ListFilter{
		TenantID:  tenantID,
		Operation: req.Operation,
		Search:    req.Search,
		Limit:     defaultLimit(req.Limit),
		Offset:    req.Offset,
	}

	rules, err := a.eng.Store().ListRules(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountRules(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*rule.Definition]{Items: rules, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	return resp, ctx.JSON(http.StatusOK, resp)
}
