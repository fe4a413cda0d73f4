package api

import (
	"context"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/sentinel"
)

func (a *API) registerDecideRoutes(router forge.Router) error {
	g := router.Group("/v1/access", forge.WithGroupTags("access"))

	if err := g.POST("/decide", a.decide,
		forge.WithSummary("Access decision"),
		forge.WithDescription("Evaluates whether the given caller may invoke the operation."),
		forge.WithOperationID("accessDecide"),
		forge.WithRequestSchema(DecideRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision", DecideResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/check", a.checkMany,
		forge.WithSummary("Batch access check"),
		forge.WithDescription("Evaluates several operations for one caller."),
		forge.WithOperationID("accessCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decisions", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/rules", a.resolveRules,
		forge.WithSummary("Resolve rules"),
		forge.WithDescription("Returns the merged access rule that applies to an operation."),
		forge.WithOperationID("accessResolveRules"),
		forge.WithRequestSchema(ResolveRulesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resolved rule", ResolveRulesResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) decide(ctx forge.Context, req *DecideRequest) (*DecideResponse, error) {
	if req.Operation == "" {
		return nil, forge.BadRequest("operation is required")
	}
	if req.Principal == "" && !req.Anonymous {
		return nil, forge.BadRequest("principal is required")
	}

	inv := sentinel.NewInvocation(req.Operation)
	inv.Attributes = req.Attributes
	rctx := callerContext(ctx.Context(), req.Principal, req.Anonymous, req.Authorities)

	result, err := a.eng.Check(rctx, inv)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toDecideResponse(req.Operation, result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) checkMany(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if len(req.Operations) == 0 {
		return nil, forge.BadRequest("operations cannot be empty")
	}
	if req.Principal == "" && !req.Anonymous {
		return nil, forge.BadRequest("principal is required")
	}

	rctx := callerContext(ctx.Context(), req.Principal, req.Anonymous, req.Authorities)
	results := make([]DecideResponse, len(req.Operations))
	for i, op := range req.Operations {
		result, err := a.eng.Check(rctx, sentinel.NewInvocation(op))
		if err != nil {
			return nil, mapError(err)
		}
		results[i] = *toDecideResponse(op, result)
	}

	resp := &CheckResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) resolveRules(ctx forge.Context, req *ResolveRulesRequest) (*ResolveRulesResponse, error) {
	if req.Operation == "" {
		return nil, forge.BadRequest("operation is required")
	}

	rules, err := a.eng.Rules().Rules(ctx.Context(), req.Operation)
	if err != nil {
		return nil, mapError(err)
	}

	merged := sentinel.Merge(rules...)
	resp := &ResolveRulesResponse{
		Operation: req.Operation,
		Public:    merged.IsPublic(),
		Groups:    merged.Strings(),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func callerContext(ctx context.Context, principal string, anonymous bool, authorities []string) context.Context {
	if anonymous {
		return sentinel.WithAuthentication(ctx, sentinel.Anonymous("api", sentinel.AuthoritiesOf(authorities...)...))
	}
	return sentinel.WithAuthentication(ctx, sentinel.NewAuthentication(principal, nil, sentinel.AuthoritiesOf(authorities...)...))
}

func toDecideResponse(operation string, r *sentinel.Result) *DecideResponse {
	resp := &DecideResponse{
		Operation:  operation,
		Allowed:    r.Allowed,
		Decision:   string(r.Decision),
		Reason:     r.Reason,
		Strategy:   string(r.Strategy),
		EvalTimeNs: r.EvalTimeNs,
	}
	for _, v := range r.Votes {
		resp.Votes = append(resp.Votes, VoteInfo{
			Source: v.Source,
			Vote:   v.Vote.String(),
			Detail: v.Detail,
		})
	}
	return resp
}
