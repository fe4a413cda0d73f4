// Package opa provides a sentinel.Voter backed by an Open Policy Agent
// Rego policy.
//
// The policy is queried with an input document describing the call:
//
//	{
//	  "principal":   "alice",
//	  "anonymous":   false,
//	  "authorities": ["ROLE_USER"],
//	  "operation":   "Reports.view",
//	  "args":        [...],
//	  "attributes":  {...},
//	  "required":    [["ROLE_USER", "ROLE_ADMIN"]]
//	}
//
// The query result may be a boolean (true grants, false denies) or one of
// the strings "grant", "deny" and "abstain". An undefined result abstains.
package opa

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xraph/sentinel"
)

// DefaultQuery is evaluated when no query is configured.
const DefaultQuery = "data.sentinel.authz.vote"

var _ sentinel.Voter = (*Voter)(nil)

// Option configures a Voter.
type Option func(*config)

type config struct {
	name    string
	query   string
	modules map[string]string
	paths   []string
}

// WithName sets the voter name reported in decision traces.
func WithName(name string) Option { return func(c *config) { c.name = name } }

// WithQuery sets the Rego query.
func WithQuery(q string) Option { return func(c *config) { c.query = q } }

// WithModule adds an inline Rego module.
func WithModule(filename, source string) Option {
	return func(c *config) { c.modules[filename] = source }
}

// WithBundlePath loads policies and data from a file or directory.
func WithBundlePath(path string) Option {
	return func(c *config) { c.paths = append(c.paths, path) }
}

// Voter votes on invocations by evaluating a prepared Rego query.
// It is safe for concurrent use.
type Voter struct {
	name  string
	query rego.PreparedEvalQuery
}

// New compiles the configured policy. At least one module or bundle path
// is required.
func New(ctx context.Context, opts ...Option) (*Voter, error) {
	c := &config{name: "opa", query: DefaultQuery, modules: map[string]string{}}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.modules) == 0 && len(c.paths) == 0 {
		return nil, errors.New("sentinel/opa: a policy module or bundle path is required")
	}

	ropts := []func(*rego.Rego){
		rego.Query(c.query),
		rego.StrictBuiltinErrors(true),
	}
	for filename, src := range c.modules {
		ropts = append(ropts, rego.Module(filename, src))
	}
	if len(c.paths) > 0 {
		ropts = append(ropts, rego.Load(c.paths, nil))
	}

	prepared, err := rego.New(ropts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("sentinel/opa: prepare query: %w", err)
	}
	return &Voter{name: c.name, query: prepared}, nil
}

// Name implements sentinel.Voter.
func (v *Voter) Name() string { return v.name }

// Vote implements sentinel.Voter.
func (v *Voter) Vote(ctx context.Context, req *sentinel.DecisionRequest) (sentinel.Vote, error) {
	results, err := v.query.Eval(ctx, rego.EvalInput(Input(req)))
	if err != nil {
		return sentinel.VoteAbstain, fmt.Errorf("sentinel/opa: eval: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return sentinel.VoteAbstain, nil
	}
	return decodeVote(results[0].Expressions[0].Value)
}

// Input builds the policy input document for req.
func Input(req *sentinel.DecisionRequest) map[string]any {
	in := map[string]any{
		"required": req.Rule.Strings(),
	}
	if a := req.Authentication; a != nil {
		auths := a.Authorities()
		names := make([]string, len(auths))
		for i, x := range auths {
			names[i] = string(x)
		}
		in["principal"] = a.Principal()
		in["anonymous"] = a.IsAnonymous()
		in["authorities"] = names
	}
	if inv := req.Invocation; inv != nil {
		in["operation"] = inv.Operation
		if inv.Args != nil {
			in["args"] = inv.Args
		}
		if inv.Attributes != nil {
			in["attributes"] = inv.Attributes
		}
	}
	return in
}

func decodeVote(value any) (sentinel.Vote, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return sentinel.VoteGrant, nil
		}
		return sentinel.VoteDeny, nil
	case string:
		switch v {
		case "grant", "allow":
			return sentinel.VoteGrant, nil
		case "deny":
			return sentinel.VoteDeny, nil
		case "abstain", "":
			return sentinel.VoteAbstain, nil
		}
		return sentinel.VoteAbstain, fmt.Errorf("sentinel/opa: unknown vote %q", v)
	}
	return sentinel.VoteAbstain, fmt.Errorf("sentinel/opa: unexpected result type %T", value)
}
