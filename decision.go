package sentinel

import (
	"context"
	"fmt"
	"time"
)

// Strategy selects how votes are combined into a decision.
type Strategy string

// Strategies.
const (
	// StrategyAffirmative grants if any vote grants.
	StrategyAffirmative Strategy = "affirmative"

	// StrategyConsensus grants if grants outnumber denies.
	StrategyConsensus Strategy = "consensus"

	// StrategyUnanimous denies if any vote denies.
	StrategyUnanimous Strategy = "unanimous"
)

// ParseStrategy parses a strategy name. The empty string is affirmative.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAffirmative:
		return StrategyAffirmative, nil
	case StrategyConsensus, StrategyUnanimous:
		return Strategy(s), nil
	}
	return "", NewConfigError("unknown decision strategy " + s)
}

// DecisionManager evaluates an AccessRule against a caller's authorities.
// Each non-empty group casts one vote: grant if the caller holds any of its
// authorities, deny otherwise. Empty groups abstain. Additional voters cast
// one vote each. The configured Strategy combines the votes.
//
// A DecisionManager is immutable and safe for concurrent use.
type DecisionManager struct {
	strategy              Strategy
	allowIfAllAbstain     bool
	allowIfEqualGrantDeny bool
	voters                []Voter
}

// NewDecisionManager returns a DecisionManager for cfg and voters.
func NewDecisionManager(cfg Config, voters ...Voter) *DecisionManager {
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyAffirmative
	}
	return &DecisionManager{
		strategy:              strategy,
		allowIfAllAbstain:     cfg.AllowIfAllAbstain,
		allowIfEqualGrantDeny: cfg.AllowIfEqualGrantedDenied,
		voters:                append([]Voter(nil), voters...),
	}
}

// Strategy returns the configured strategy.
func (m *DecisionManager) Strategy() Strategy { return m.strategy }

// DecideAuthorities decides using only authority votes. It has no side
// effects and needs no context.
func (m *DecisionManager) DecideAuthorities(authorities []Authority, rule AccessRule) *Result {
	start := time.Now()
	if rule.IsPublic() {
		return m.public(start)
	}
	votes := authorityVotes(authorities, rule)
	res := m.tally(votes, len(authorities) == 0)
	res.EvalTimeNs = time.Since(start).Nanoseconds()
	return res
}

// Decide decides req using authority votes and every configured voter.
func (m *DecisionManager) Decide(ctx context.Context, req *DecisionRequest) (*Result, error) {
	start := time.Now()
	if req.Rule.IsPublic() {
		return m.public(start), nil
	}
	var authorities []Authority
	if req.Authentication != nil {
		authorities = req.Authentication.authorities
	}
	votes := authorityVotes(authorities, req.Rule)
	for _, v := range m.voters {
		vote, err := v.Vote(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("sentinel: voter %s: %w", v.Name(), err)
		}
		votes = append(votes, VoteInfo{Source: v.Name(), Vote: vote})
	}
	res := m.tally(votes, len(authorities) == 0)
	res.EvalTimeNs = time.Since(start).Nanoseconds()
	return res, nil
}

func (m *DecisionManager) public(start time.Time) *Result {
	return &Result{
		Allowed:    true,
		Decision:   DecisionAllowPublic,
		Reason:     "operation has no access requirements",
		Strategy:   m.strategy,
		EvalTimeNs: time.Since(start).Nanoseconds(),
	}
}

func authorityVotes(granted []Authority, rule AccessRule) []VoteInfo {
	votes := make([]VoteInfo, 0, len(rule.Groups))
	for _, g := range rule.Groups {
		if len(g) == 0 {
			votes = append(votes, VoteInfo{Source: "authority", Vote: VoteAbstain, Detail: "empty group"})
			continue
		}
		if a, ok := matchedAuthority(granted, g); ok {
			votes = append(votes, VoteInfo{Source: "authority", Vote: VoteGrant, Detail: "holds " + string(a)})
			continue
		}
		votes = append(votes, VoteInfo{Source: "authority", Vote: VoteDeny, Detail: "requires one of " + joinAuthorities(g)})
	}
	return votes
}

func (m *DecisionManager) tally(votes []VoteInfo, noAuthorities bool) *Result {
	var grants, denies int
	for _, v := range votes {
		switch v.Vote {
		case VoteGrant:
			grants++
		case VoteDeny:
			denies++
		}
	}
	res := &Result{Strategy: m.strategy, Votes: votes}

	if grants == 0 && denies == 0 {
		if m.allowIfAllAbstain {
			res.Allowed, res.Decision, res.Reason = true, DecisionAllowAbstain, "all voters abstained"
		} else {
			res.Decision, res.Reason = DecisionDenyAbstain, "all voters abstained"
		}
		return res
	}

	switch m.strategy {
	case StrategyConsensus:
		switch {
		case grants > denies:
			res.Allowed, res.Decision = true, DecisionAllow
			res.Reason = fmt.Sprintf("%d grant(s) outnumber %d deny vote(s)", grants, denies)
		case denies > grants:
			res.Decision = DecisionDeny
			res.Reason = fmt.Sprintf("%d deny vote(s) outnumber %d grant(s)", denies, grants)
		case m.allowIfEqualGrantDeny:
			res.Allowed, res.Decision = true, DecisionAllow
			res.Reason = fmt.Sprintf("tie of %d vote(s) allowed", grants)
		default:
			res.Decision = DecisionDenyTie
			res.Reason = fmt.Sprintf("tie of %d vote(s) denied", grants)
		}
	case StrategyUnanimous:
		if denies > 0 {
			res.Decision, res.Reason = DecisionDeny, "at least one voter denied"
		} else {
			res.Allowed, res.Decision, res.Reason = true, DecisionAllow, "no voter denied"
		}
	default:
		if grants > 0 {
			res.Allowed, res.Decision, res.Reason = true, DecisionAllow, "at least one voter granted"
		} else {
			res.Decision, res.Reason = DecisionDeny, "no voter granted"
		}
	}

	if !res.Allowed && noAuthorities && res.Decision == DecisionDeny {
		res.Decision, res.Reason = DecisionDenyNoAuthorities, "caller holds no authorities"
	}
	return res
}
