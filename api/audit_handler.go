package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/id"
)

func (a *API) registerAuditRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("audit"))

	if err := g.GET("/audit", a.listAudit,
		forge.WithSummary("Query audit entries"),
		forge.WithDescription("Returns access decision audit entries with optional filters."),
		forge.WithOperationID("listAuditEntries"),
		forge.WithRequestSchema(ListAuditRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Audit entries", ListResponse[*audit.Entry]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/audit/:entryId", a.getAudit,
		forge.WithSummary("Get audit entry"),
		forge.WithDescription("Returns a single audit entry."),
		forge.WithOperationID("getAuditEntry"),
		forge.WithResponseSchema(http.StatusOK, "Audit entry", &audit.Entry{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/audit", a.purgeAudit,
		forge.WithSummary("Purge audit entries"),
		forge.WithDescription("Removes audit entries older than the cutoff."),
		forge.WithOperationID("purgeAuditEntries"),
		forge.WithRequestSchema(PurgeAuditRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Purge result", PurgeResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listAudit(ctx forge.Context, req *ListAuditRequest) (*ListResponse[*audit.Entry], error) {
	_, tenantID := sentinel.TenantFrom(ctx.Context())
	filter := &audit.QueryFilter{
		TenantID:  tenantID,
		Principal: req.Principal,
		Operation: req.Operation,
		Decision:  req.Decision,
		Limit:     defaultLimit(req.Limit),
		Offset:    req.Offset,
	}

	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest("invalid after timestamp")
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest("invalid before timestamp")
		}
		filter.Before = &t
	}

	entries, err := a.eng.Store().ListAuditEntries(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountAuditEntries(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*audit.Entry]{Items: entries, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getAudit(ctx forge.Context, _ *GetAuditRequest) (*audit.Entry, error) {
	entryID, err := id.ParseAuditID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid audit entry ID: %v", err))
	}

	e, err := a.eng.Store().GetAuditEntry(ctx.Context(), entryID)
	if err != nil {
		return nil, mapError(err)
	}

	return e, ctx.JSON(http.StatusOK, e)
}

func (a *API) purgeAudit(ctx forge.Context, req *PurgeAuditRequest) (*PurgeResponse, error) {
	if req.Before == "" {
		return nil, forge.BadRequest("before is required")
	}
	before, err := time.Parse(time.RFC3339, req.Before)
	if err != nil {
		return nil, forge.BadRequest("invalid before timestamp")
	}

	n, err := a.eng.Store().PurgeAuditEntries(ctx.Context(), before)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &PurgeResponse{Deleted: n}
	return resp, ctx.JSON(http.StatusOK, resp)
}
