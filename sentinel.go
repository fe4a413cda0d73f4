// Package sentinel provides method-level access control for Go services.
//
// A protected operation is identified by a string (for example
// "BusinessService.someAdminMethod") and carries an AccessRule: a
// disjunction of authority groups. Before the operation runs, the Engine
// reads the caller's Authentication from the SecurityContext bound to the
// context.Context, evaluates the rule through a DecisionManager and either
// invokes the target or fails with a distinguishable fault.
//
//	reg := sentinel.NewRegistry()
//	_ = reg.Register("BusinessService.someUser*", sentinel.Require("ROLE_USER"))
//
//	eng, err := sentinel.NewEngine(sentinel.WithRuleSource(reg))
//
//	ctx = sentinel.WithAuthentication(ctx, sentinel.NewAuthentication("alice", nil, "ROLE_USER"))
//	out, err := sentinel.Protect(ctx, eng, "BusinessService.someUserMethod1", svc.someUserMethod1)
//
// Interceptors around protected calls are composed with the chain package.
package sentinel

// Authority is an opaque permission or role token held by a caller.
// Two authorities are equal only if their strings are equal.
type Authority string

// String returns the authority token.
func (a Authority) String() string { return string(a) }

// Well-known authorities.
const (
	// AuthorityAnonymous is granted to the anonymous authentication.
	AuthorityAnonymous Authority = "ROLE_ANONYMOUS"

	// AnonymousPrincipal is the principal of the anonymous authentication.
	AnonymousPrincipal = "anonymousUser"
)

// Invocation describes one call to a protected operation.
type Invocation struct {
	// Operation identifies the protected method or request target.
	Operation string `json:"operation"`

	// Args are the call arguments, visible to voters.
	Args []any `json:"args,omitempty"`

	// Attributes carry request-scoped data (remote address, route, ...).
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewInvocation returns an Invocation for operation with the given arguments.
func NewInvocation(operation string, args ...any) *Invocation {
	return &Invocation{Operation: operation, Args: args}
}

// Decision is the authorization outcome code.
type Decision string

const (
	// DecisionAllow means the voters granted access.
	DecisionAllow Decision = "allow"

	// DecisionAllowPublic means the operation has no requirements.
	DecisionAllowPublic Decision = "allow_public"

	// DecisionAllowAbstain means every voter abstained and abstention is allowed.
	DecisionAllowAbstain Decision = "allow_abstain"

	// DecisionDeny means the voters denied access.
	DecisionDeny Decision = "deny"

	// DecisionDenyNoAuthorities means the caller holds no authorities.
	DecisionDenyNoAuthorities Decision = "deny_no_authorities"

	// DecisionDenyAbstain means every voter abstained and abstention is denied.
	DecisionDenyAbstain Decision = "deny_abstain"

	// DecisionDenyTie means a consensus vote tied and ties are denied.
	DecisionDenyTie Decision = "deny_tie"

	// DecisionDenyUnprotected means the operation has no rule and
	// public invocations are rejected.
	DecisionDenyUnprotected Decision = "deny_unprotected"
)

// Result is the outcome of one access decision.
type Result struct {
	Allowed    bool       `json:"allowed"`
	Decision   Decision   `json:"decision"`
	Reason     string     `json:"reason,omitempty"`
	Strategy   Strategy   `json:"strategy,omitempty"`
	Votes      []VoteInfo `json:"votes,omitempty"`
	EvalTimeNs int64      `json:"eval_time_ns"`
}

// VoteInfo records a single vote cast during a decision.
type VoteInfo struct {
	Source string `json:"source"` // "authority" or a voter name
	Vote   Vote   `json:"vote"`
	Detail string `json:"detail,omitempty"`
}
