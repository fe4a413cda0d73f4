package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/rule"
)

// ──────────────────────────────────────────────────
// Rule model
// ──────────────────────────────────────────────────

type ruleModel struct {
	grove.BaseModel `grove:"table:sentinel_rules"`
	ID              string         `grove:"id,pk"`
	TenantID        string         `grove:"tenant_id,notnull"`
	AppID           string         `grove:"app_id,notnull"`
	Operation       string         `grove:"operation,notnull"`
	Groups          [][]string     `grove:"groups,type:jsonb"`
	Description     string         `grove:"description"`
	Metadata        map[string]any `grove:"metadata,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
	UpdatedAt       time.Time      `grove:"updated_at,notnull"`
}

func ruleToModel(d *rule.Definition) *ruleModel {
	groups := d.Groups
	if groups == nil {
		groups = [][]string{}
	}
	return &ruleModel{
		ID:          d.ID.String(),
		TenantID:    d.TenantID,
		AppID:       d.AppID,
		Operation:   d.Operation,
		Groups:      groups,
		Description: d.Description,
		Metadata:    d.Metadata,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func ruleFromModel(m *ruleModel) *rule.Definition {
	rid, _ := id.ParseRuleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &rule.Definition{
		ID:          rid,
		TenantID:    m.TenantID,
		AppID:       m.AppID,
		Operation:   m.Operation,
		Groups:      m.Groups,
		Description: m.Description,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Audit entry model
// ──────────────────────────────────────────────────

type auditModel struct {
	grove.BaseModel `grove:"table:sentinel_audit_entries"`
	ID              string         `grove:"id,pk"`
	TenantID        string         `grove:"tenant_id,notnull"`
	AppID           string         `grove:"app_id,notnull"`
	Principal       string         `grove:"principal,notnull"`
	Operation       string         `grove:"operation,notnull"`
	Authorities     []string       `grove:"authorities,type:jsonb"`
	Allowed         bool           `grove:"allowed,notnull"`
	Decision        string         `grove:"decision,notnull"`
	Reason          string         `grove:"reason"`
	EvalTimeNs      int64          `grove:"eval_time_ns,notnull"`
	Metadata        map[string]any `grove:"metadata,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func auditToModel(e *audit.Entry) *auditModel {
	authorities := e.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	return &auditModel{
		ID:          e.ID.String(),
		TenantID:    e.TenantID,
		AppID:       e.AppID,
		Principal:   e.Principal,
		Operation:   e.Operation,
		Authorities: authorities,
		Allowed:     e.Allowed,
		Decision:    e.Decision,
		Reason:      e.Reason,
		EvalTimeNs:  e.EvalTimeNs,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

func auditFromModel(m *auditModel) *audit.Entry {
	aid, _ := id.ParseAuditID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &audit.Entry{
		ID:          aid,
		TenantID:    m.TenantID,
		AppID:       m.AppID,
		Principal:   m.Principal,
		Operation:   m.Operation,
		Authorities: m.Authorities,
		Allowed:     m.Allowed,
		Decision:    m.Decision,
		Reason:      m.Reason,
		EvalTimeNs:  m.EvalTimeNs,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
	}
}
