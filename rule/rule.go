// Package rule defines the persisted rule Definition and its store interface.
package rule

import (
	"time"

	"github.com/xraph/sentinel/id"
)

// Definition is an access rule stored for a tenant. Operation is an exact
// operation identifier or a pattern ending in '*'. Groups is a disjunction
// of authority groups.
type Definition struct {
	ID          id.RuleID      `json:"id" db:"id"`
	TenantID    string         `json:"tenant_id" db:"tenant_id"`
	AppID       string         `json:"app_id" db:"app_id"`
	Operation   string         `json:"operation" db:"operation"`
	Groups      [][]string     `json:"groups" db:"groups"`
	Description string         `json:"description,omitempty" db:"description"`
	Metadata    map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing rules.
type ListFilter struct {
	TenantID  string `json:"tenant_id,omitempty"`
	Operation string `json:"operation,omitempty"`
	Search    string `json:"search,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}
