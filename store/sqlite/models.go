package sqlite

import (
	"encoding/json"
	"fmt"
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
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	AppID           string    `grove:"app_id,notnull"`
	Operation       string    `grove:"operation,notnull"`
	Groups          string    `grove:"groups,notnull"` // JSON text
	Description     string    `grove:"description"`
	Metadata        string    `grove:"metadata"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func ruleToModel(d *rule.Definition) (*ruleModel, error) {
	groups := d.Groups
	if groups == nil {
		groups = [][]string{}
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return nil, fmt.Errorf("marshal rule groups: %w", err)
	}
	metadata, err := json.Marshal(d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal rule metadata: %w", err)
	}
	return &ruleModel{
		ID:          d.ID.String(),
		TenantID:    d.TenantID,
		AppID:       d.AppID,
		Operation:   d.Operation,
		Groups:      string(groupsJSON),
		Description: d.Description,
		Metadata:    string(metadata),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func ruleFromModel(m *ruleModel) (*rule.Definition, error) {
	rid, _ := id.ParseRuleID(m.ID) //nolint:errcheck // stored IDs are always valid
	var groups [][]string
	if m.Groups != "" {
		if err := json.Unmarshal([]byte(m.Groups), &groups); err != nil {
			return nil, fmt.Errorf("unmarshal rule groups: %w", err)
		}
	}
	var metadata map[string]any
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal rule metadata: %w", err)
		}
	}
	return &rule.Definition{
		ID:          rid,
		TenantID:    m.TenantID,
		AppID:       m.AppID,
		Operation:   m.Operation,
		Groups:      groups,
		Description: m.Description,
		Metadata:    metadata,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

// ──────────────────────────────────────────────────
// Audit entry model
// ──────────────────────────────────────────────────

type auditModel struct {
	grove.BaseModel `grove:"table:sentinel_audit_entries"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	AppID           string    `grove:"app_id,notnull"`
	Principal       string    `grove:"principal,notnull"`
	Operation       string    `grove:"operation,notnull"`
	Authorities     string    `grove:"authorities,notnull"` // JSON text
	Allowed         bool      `grove:"allowed,notnull"`
	Decision        string    `grove:"decision,notnull"`
	Reason          string    `grove:"reason"`
	EvalTimeNs      int64     `grove:"eval_time_ns,notnull"`
	Metadata        string    `grove:"metadata"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func auditToModel(e *audit.Entry) (*auditModel, error) {
	authorities := e.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	authJSON, err := json.Marshal(authorities)
	if err != nil {
		return nil, fmt.Errorf("marshal audit authorities: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal audit metadata: %w", err)
	}
	return &auditModel{
		ID:          e.ID.String(),
		TenantID:    e.TenantID,
		AppID:       e.AppID,
		Principal:   e.Principal,
		Operation:   e.Operation,
		Authorities: string(authJSON),
		Allowed:     e.Allowed,
		Decision:    e.Decision,
		Reason:      e.Reason,
		EvalTimeNs:  e.EvalTimeNs,
		Metadata:    string(metadata),
		CreatedAt:   e.CreatedAt,
	}, nil
}

func auditFromModel(m *auditModel) (*audit.Entry, error) {
	aid, _ := id.ParseAuditID(m.ID) //nolint:errcheck // stored IDs are always valid
	var authorities []string
	if m.Authorities != "" {
		if err := json.Unmarshal([]byte(m.Authorities), &authorities); err != nil {
			return nil, fmt.Errorf("unmarshal audit authorities: %w", err)
		}
	}
	var metadata map[string]any
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
		}
	}
	return &audit.Entry{
		ID:          aid,
		TenantID:    m.TenantID,
		AppID:       m.AppID,
		Principal:   m.Principal,
		Operation:   m.Operation,
		Authorities: authorities,
		Allowed:     m.Allowed,
		Decision:    m.Decision,
		Reason:      m.Reason,
		EvalTimeNs:  m.EvalTimeNs,
		Metadata:    metadata,
		CreatedAt:   m.CreatedAt,
	}, nil
}
