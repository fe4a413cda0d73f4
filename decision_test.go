package sentinel

import (
	"context"
	"testing"
)

func TestMatchAuthorities(t *testing.T) {
	tests := []struct {
		name     string
		granted  []Authority
		required AuthorityGroup
		want     bool
	}{
		{"intersect", AuthoritiesOf("ROLE_USER"), AuthorityGroup{"ROLE_USER", "ROLE_ADMIN"}, true},
		{"disjoint", AuthoritiesOf("ROLE_OTHER"), AuthorityGroup{"ROLE_USER"}, false},
		{"no granted", nil, AuthorityGroup{"ROLE_USER"}, false},
		{"empty group", AuthoritiesOf("ROLE_USER"), AuthorityGroup{}, false},
		{"case sensitive", AuthoritiesOf("role_user"), AuthorityGroup{"ROLE_USER"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchAuthorities(tt.granted, tt.required); got != tt.want {
				t.Fatalf("MatchAuthorities() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Under the affirmative strategy a single-group rule allows exactly when
// the granted and required sets intersect.
func TestAffirmativeIntersectionProperty(t *testing.T) {
	universe := AuthoritiesOf("A", "B", "C")
	m := NewDecisionManager(DefaultConfig())

	subsets := func() [][]Authority {
		var out [][]Authority
		for mask := 0; mask < 1<<len(universe); mask++ {
			var s []Authority
			for i, a := range universe {
				if mask&(1<<i) != 0 {
					s = append(s, a)
				}
			}
			out = append(out, s)
		}
		return out
	}()

	for _, granted := range subsets {
		for _, required := range subsets {
			if len(required) == 0 {
				continue
			}
			res := m.DecideAuthorities(granted, Require(required...))
			want := MatchAuthorities(granted, required)
			if res.Allowed != want {
				t.Fatalf("granted=%v required=%v: allowed=%v, want %v", granted, required, res.Allowed, want)
			}
		}
	}
}

func TestDecideAuthorities_PublicRule(t *testing.T) {
	m := NewDecisionManager(DefaultConfig())
	for _, rule := range []AccessRule{Public(), {Groups: []AuthorityGroup{{}, {}}}} {
		res := m.DecideAuthorities(nil, rule)
		if !res.Allowed || res.Decision != DecisionAllowPublic {
			t.Fatalf("expected public allow, got %s", res.Decision)
		}
		if len(res.Votes) != 0 {
			t.Fatal("voters must not be consulted for public rules")
		}
	}
}

func TestDecideAuthorities_Disjunction(t *testing.T) {
	m := NewDecisionManager(DefaultConfig())
	rule := AnyOf(AuthorityGroup{"ROLE_ADMIN"}, AuthorityGroup{"ROLE_AUDITOR", "ROLE_OPS"})

	if res := m.DecideAuthorities(AuthoritiesOf("ROLE_OPS"), rule); !res.Allowed {
		t.Fatalf("expected second group to grant, got %s", res.Decision)
	}
	res := m.DecideAuthorities(AuthoritiesOf("ROLE_USER"), rule)
	if res.Allowed || res.Decision != DecisionDeny {
		t.Fatalf("expected deny, got %s", res.Decision)
	}
	if len(res.Votes) != 2 {
		t.Fatalf("expected one vote per group, got %d", len(res.Votes))
	}
}

func TestStrategies(t *testing.T) {
	// Two groups: the caller satisfies the first and fails the second.
	split := AnyOf(AuthorityGroup{"ROLE_USER"}, AuthorityGroup{"ROLE_ADMIN"})
	// Three groups: the caller satisfies two.
	majority := AnyOf(AuthorityGroup{"ROLE_USER"}, AuthorityGroup{"ROLE_STAFF"}, AuthorityGroup{"ROLE_ADMIN"})
	granted := AuthoritiesOf("ROLE_USER", "ROLE_STAFF")

	tests := []struct {
		name     string
		cfg      Config
		rule     AccessRule
		allowed  bool
		decision Decision
	}{
		{"affirmative split", Config{Strategy: StrategyAffirmative}, split, true, DecisionAllow},
		{"consensus tie denies", Config{Strategy: StrategyConsensus}, split, false, DecisionDenyTie},
		{"consensus tie allowed", Config{Strategy: StrategyConsensus, AllowIfEqualGrantedDenied: true}, split, true, DecisionAllow},
		{"consensus majority", Config{Strategy: StrategyConsensus}, majority, true, DecisionAllow},
		{"unanimous split", Config{Strategy: StrategyUnanimous}, split, false, DecisionDeny},
		{"unanimous all grant", Config{Strategy: StrategyUnanimous}, AnyOf(AuthorityGroup{"ROLE_USER"}, AuthorityGroup{"ROLE_STAFF"}), true, DecisionAllow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewDecisionManager(tt.cfg).DecideAuthorities(granted, tt.rule)
			if res.Allowed != tt.allowed || res.Decision != tt.decision {
				t.Fatalf("got allowed=%v decision=%s, want %v %s", res.Allowed, res.Decision, tt.allowed, tt.decision)
			}
			if res.Strategy != tt.cfg.Strategy {
				t.Fatalf("expected strategy %s on result, got %s", tt.cfg.Strategy, res.Strategy)
			}
		})
	}
}

func TestDecide_CombinesGroupAndVoterVotes(t *testing.T) {
	abstain := VoterFunc("abstain", func(context.Context, *DecisionRequest) (Vote, error) {
		return VoteAbstain, nil
	})
	// Empty groups abstain next to the non-empty ones.
	req := &DecisionRequest{
		Authentication: NewAuthentication("alice", nil, "ROLE_USER"),
		Invocation:     NewInvocation("Svc.op"),
		Rule:           AccessRule{Groups: []AuthorityGroup{{}, {"ROLE_USER"}}},
	}

	res, err := NewDecisionManager(DefaultConfig(), abstain).Decide(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatalf("expected the matching group to grant, got %s", res.Decision)
	}
	if len(res.Votes) != 3 {
		t.Fatalf("expected 3 votes (abstain, grant, voter), got %d", len(res.Votes))
	}
	if res.Votes[0].Vote != VoteAbstain || res.Votes[2].Source != "abstain" {
		t.Fatalf("unexpected votes %+v", res.Votes)
	}
}

func TestTally_AllAbstainPolicy(t *testing.T) {
	votes := []VoteInfo{{Source: "x", Vote: VoteAbstain}}

	res := NewDecisionManager(DefaultConfig()).tally(votes, false)
	if res.Allowed || res.Decision != DecisionDenyAbstain {
		t.Fatalf("expected deny on abstain, got %s", res.Decision)
	}
	res = NewDecisionManager(Config{AllowIfAllAbstain: true}).tally(votes, false)
	if !res.Allowed || res.Decision != DecisionAllowAbstain {
		t.Fatalf("expected allow on abstain, got %s", res.Decision)
	}
}

func TestDecide_VoterCanVeto(t *testing.T) {
	veto := VoterFunc("veto", func(_ context.Context, req *DecisionRequest) (Vote, error) {
		if req.Invocation.Operation == "Svc.delete" {
			return VoteDeny, nil
		}
		return VoteAbstain, nil
	})
	m := NewDecisionManager(Config{Strategy: StrategyUnanimous}, veto)
	auth := NewAuthentication("alice", nil, "ROLE_USER")

	res, err := m.Decide(context.Background(), &DecisionRequest{
		Authentication: auth, Invocation: NewInvocation("Svc.read"), Rule: Require("ROLE_USER"),
	})
	if err != nil || !res.Allowed {
		t.Fatalf("expected read to be allowed, got %v %v", res, err)
	}
	res, err = m.Decide(context.Background(), &DecisionRequest{
		Authentication: auth, Invocation: NewInvocation("Svc.delete"), Rule: Require("ROLE_USER"),
	})
	if err != nil || res.Allowed {
		t.Fatalf("expected veto to deny delete, got %v %v", res, err)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"", "affirmative", "consensus", "unanimous"} {
		if _, err := ParseStrategy(s); err != nil {
			t.Fatalf("ParseStrategy(%q): %v", s, err)
		}
	}
	if _, err := ParseStrategy("random"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestVoteText(t *testing.T) {
	for _, v := range []Vote{VoteGrant, VoteAbstain, VoteDeny} {
		b, _ := v.MarshalText()
		var back Vote
		_ = back.UnmarshalText(b)
		if back != v {
			t.Fatalf("vote %s did not survive text encoding", v)
		}
	}
}
