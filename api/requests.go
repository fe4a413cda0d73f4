package api

// ──────────────────────────────────────────────────
// Decision requests
// ──────────────────────────────────────────────────

// DecideRequest asks for an access decision on behalf of a caller.
type DecideRequest struct {
	Principal   string         `json:"principal" description:"Caller identifier"`
	Anonymous   bool           `json:"anonymous,omitempty" description:"Evaluate as the anonymous caller"`
	Authorities []string       `json:"authorities" description:"Authorities granted to the caller"`
	Operation   string         `json:"operation" description:"Protected operation identifier"`
	Attributes  map[string]any `json:"attributes,omitempty" description:"Invocation attributes passed to voters"`
}

// CheckRequest asks for decisions on several operations for one caller.
type CheckRequest struct {
	Principal   string   `json:"principal" description:"Caller identifier"`
	Anonymous   bool     `json:"anonymous,omitempty" description:"Evaluate as the anonymous caller"`
	Authorities []string `json:"authorities" description:"Authorities granted to the caller"`
	Operations  []string `json:"operations" description:"Operation identifiers to check"`
}

// ResolveRulesRequest holds query parameters for resolving an operation's rules.
type ResolveRulesRequest struct {
	Operation string `query:"operation" description:"Operation identifier"`
}

// ──────────────────────────────────────────────────
// Rule requests
// ──────────────────────────────────────────────────

// CreateRuleRequest is the body for creating a rule.
type CreateRuleRequest struct {
	Operation   string         `json:"operation" description:"Operation identifier or pattern ending in '*'"`
	Groups      [][]string     `json:"groups" description:"Authority groups; any authority of any group grants access"`
	Description string         `json:"description,omitempty" description:"Human-readable description"`
	Metadata    map[string]any `json:"metadata,omitempty" description:"Custom metadata"`
}

// UpdateRuleRequest is the body for updating a rule.
type UpdateRuleRequest struct {
	Operation   string         `json:"operation,omitempty" description:"Operation identifier or pattern"`
	Groups      [][]string     `json:"groups,omitempty" description:"Replacement authority groups"`
	Description *string        `json:"description,omitempty" description:"Human-readable description"`
	Metadata    map[string]any `json:"metadata,omitempty" description:"Custom metadata"`
}

// GetRuleRequest is the path parameter for getting a rule.
type GetRuleRequest struct {
	RuleID string `path:"ruleId" description:"Rule ID"`
}

// ListRulesRequest holds query parameters for listing rules.
type ListRulesRequest struct {
	Operation string `query:"operation" description:"Exact operation identifier"`
	Search    string `query:"search" description:"Search by operation"`
	Limit     int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset    int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Audit requests
// ──────────────────────────────────────────────────

// ListAuditRequest holds query parameters for querying audit entries.
type ListAuditRequest struct {
	Principal string `query:"principal" description:"Filter by principal"`
	Operation string `query:"operation" description:"Filter by operation"`
	Decision  string `query:"decision" description:"Filter by decision code"`
	After     string `query:"after" description:"RFC3339 lower bound"`
	Before    string `query:"before" description:"RFC3339 upper bound"`
	Limit     int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset    int    `query:"offset" description:"Results to skip"`
}

// GetAuditRequest is the path parameter for getting an audit entry.
type GetAuditRequest struct {
	EntryID string `path:"entryId" description:"Audit entry ID"`
}

// PurgeAuditRequest holds query parameters for purging audit entries.
type PurgeAuditRequest struct {
	Before string `query:"before" description:"RFC3339 cutoff; older entries are removed"`
}
