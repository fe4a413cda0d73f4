package sentinel

import "context"

// Vote is a single voter's opinion on an invocation.
type Vote int

// Vote values.
const (
	VoteDeny    Vote = -1
	VoteAbstain Vote = 0
	VoteGrant   Vote = 1
)

// String returns "grant", "abstain" or "deny".
func (v Vote) String() string {
	switch v {
	case VoteGrant:
		return "grant"
	case VoteDeny:
		return "deny"
	default:
		return "abstain"
	}
}

// MarshalText encodes the vote as its name.
func (v Vote) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText decodes a vote name. Unknown names decode as abstain.
func (v *Vote) UnmarshalText(b []byte) error {
	switch string(b) {
	case "grant":
		*v = VoteGrant
	case "deny":
		*v = VoteDeny
	default:
		*v = VoteAbstain
	}
	return nil
}

// DecisionRequest is the input to a decision: who is calling, what is
// being called and which rule applies.
type DecisionRequest struct {
	Authentication *Authentication
	Invocation     *Invocation
	Rule           AccessRule
}

// Voter casts an additional vote next to the per-group authority votes.
// Returning an error aborts the decision.
type Voter interface {
	Name() string
	Vote(ctx context.Context, req *DecisionRequest) (Vote, error)
}

// VoterFunc adapts a function into a named Voter.
func VoterFunc(name string, fn func(ctx context.Context, req *DecisionRequest) (Vote, error)) Voter {
	return voterFunc{name: name, fn: fn}
}

type voterFunc struct {
	name string
	fn   func(ctx context.Context, req *DecisionRequest) (Vote, error)
}

func (v voterFunc) Name() string { return v.name }

func (v voterFunc) Vote(ctx context.Context, req *DecisionRequest) (Vote, error) {
	return v.fn(ctx, req)
}
