package api

// DecideResponse is the response for an access decision.
type DecideResponse struct {
	Operation  string     `json:"operation" description:"Operation identifier"`
	Allowed    bool       `json:"allowed" description:"Whether access is granted"`
	Decision   string     `json:"decision" description:"Decision code"`
	Reason     string     `json:"reason,omitempty" description:"Human-readable reason"`
	Strategy   string     `json:"strategy" description:"Vote combination strategy"`
	Votes      []VoteInfo `json:"votes,omitempty" description:"Individual votes"`
	EvalTimeNs int64      `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// VoteInfo is a single vote in a decision.
type VoteInfo struct {
	Source string `json:"source" description:"Voter name"`
	Vote   string `json:"vote" description:"grant, deny or abstain"`
	Detail string `json:"detail,omitempty" description:"Vote detail"`
}

// CheckResponse contains decisions for several operations.
type CheckResponse struct {
	Results []DecideResponse `json:"results" description:"Decisions in request order"`
}

// ResolveRulesResponse lists the rules that apply to an operation.
type ResolveRulesResponse struct {
	Operation string     `json:"operation" description:"Operation identifier"`
	Public    bool       `json:"public" description:"Whether the operation is unrestricted"`
	Groups    [][]string `json:"groups" description:"Merged authority groups"`
}

// PurgeResponse reports how many audit entries were removed.
type PurgeResponse struct {
	Deleted int64 `json:"deleted" description:"Number of removed entries"`
}

// ChainResponse describes the configured filter chain.
type ChainResponse struct {
	Filters []FilterInfo `json:"filters" description:"Filters in execution order"`
}

// FilterInfo is a filter name and its resolved position.
type FilterInfo struct {
	Name  string `json:"name" description:"Filter name"`
	Order int    `json:"order" description:"Resolved order"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
