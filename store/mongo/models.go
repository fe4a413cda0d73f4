package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/rule"
)

type ruleModel struct {
	grove.BaseModel `grove:"table:sentinel_rules"`
	ID              string         `grove:"id,pk"       bson:"_id"`
	TenantID        string         `grove:"tenant_id"   bson:"tenant_id"`
	AppID           string         `grove:"app_id"      bson:"app_id"`
	Operation       string         `grove:"operation"   bson:"operation"`
	Groups          [][]string     `grove:"groups"      bson:"groups"`
	Description     string         `grove:"description" bson:"description"`
	Metadata        map[string]any `grove:"metadata"    bson:"metadata,omitempty"`
	CreatedAt       time.Time      `grove:"created_at"  bson:"created_at"`
	UpdatedAt       time.Time      `grove:"updated_at"  bson:"updated_at"`
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

type auditModel struct {
	grove.BaseModel `grove:"table:sentinel_audit_entries"`
	ID              string         `grove:"id,pk"        bson:"_id"`
	TenantID        string         `grove:"tenant_id"    bson:"tenant_id"`
	AppID           string         `grove:"app_id"       bson:"app_id"`
	Principal       string         `grove:"principal"    bson:"principal"`
	Operation       string         `grove:"operation"    bson:"operation"`
	Authorities     []string       `grove:"authorities"  bson:"authorities"`
	Allowed         bool           `grove:"allowed"      bson:"allowed"`
	Decision        string         `grove:"decision"     bson:"decision"`
	Reason          string         `grove:"reason"       bson:"reason"`
	EvalTimeNs      int64          `grove:"eval_time_ns" bson:"eval_time_ns"`
	Metadata        map[string]any `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt       time.Time      `grove:"created_at"   bson:"created_at"`
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
