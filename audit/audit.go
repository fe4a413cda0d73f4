// Package audit defines the decision audit Entry entity.
package audit

import (
	"time"

	"github.com/xraph/sentinel/id"
)

// Entry is a single access decision audit record.
type Entry struct {
	ID          id.AuditID     `json:"id" db:"id"`
	TenantID    string         `json:"tenant_id" db:"tenant_id"`
	AppID       string         `json:"app_id" db:"app_id"`
	Principal   string         `json:"principal" db:"principal"`
	Operation   string         `json:"operation" db:"operation"`
	Authorities []string       `json:"authorities,omitempty" db:"authorities"`
	Allowed     bool           `json:"allowed" db:"allowed"`
	Decision    string         `json:"decision" db:"decision"`
	Reason      string         `json:"reason,omitempty" db:"reason"`
	EvalTimeNs  int64          `json:"eval_time_ns" db:"eval_time_ns"`
	Metadata    map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit entries.
type QueryFilter struct {
	TenantID  string     `json:"tenant_id,omitempty"`
	Principal string     `json:"principal,omitempty"`
	Operation string     `json:"operation,omitempty"`
	Decision  string     `json:"decision,omitempty"`
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}
