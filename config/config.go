// Package config loads the Sentinel security file: decision settings,
// extra chain slots, filter placements and access rules.
//
//	strategy: affirmative
//	slots:
//	  AUDIT_FILTER: 1450
//	filters:
//	  - name: audit
//	    after: FILTER_SECURITY_INTERCEPTOR
//	rules:
//	  - operation: "BusinessService.someUser*"
//	    any_of: [[ROLE_USER]]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/chain"
)

// File is a parsed security file.
type File struct {
	sentinel.Config `yaml:",inline"`

	// Slots adds named positions to the canonical slot table.
	Slots map[string]int `yaml:"slots,omitempty"`

	// Filters places named filter behaviors in the chain.
	Filters []FilterSpec `yaml:"filters,omitempty"`

	// Rules declares the authorities required per operation.
	Rules []RuleSpec `yaml:"rules,omitempty"`
}

// FilterSpec places one filter. Ref names the behavior to bind and
// defaults to Name.
type FilterSpec struct {
	Name     string `yaml:"name"`
	Ref      string `yaml:"ref,omitempty"`
	After    string `yaml:"after,omitempty"`
	Before   string `yaml:"before,omitempty"`
	Position string `yaml:"position,omitempty"`
	Order    *int   `yaml:"order,omitempty"`
}

// RuleSpec declares a rule. Require is shorthand for a single group; it is
// combined with AnyOf as an additional group.
type RuleSpec struct {
	Operation string     `yaml:"operation"`
	Require   []string   `yaml:"require,omitempty"`
	AnyOf     [][]string `yaml:"any_of,omitempty"`
	Public    bool       `yaml:"public,omitempty"`
}

// Load reads and parses the security file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sentinel/config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a security file. Unknown keys are rejected.
// Validation problems are reported together as *sentinel.ConfigError values.
func Parse(data []byte) (*File, error) {
	f := &File{Config: sentinel.DefaultConfig()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("sentinel/config: decode: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) validate() error {
	var errs []error
	strategy, err := sentinel.ParseStrategy(string(f.Strategy))
	if err != nil {
		errs = append(errs, err)
	} else {
		f.Strategy = strategy
	}
	for i, r := range f.Rules {
		if r.Operation == "" {
			errs = append(errs, sentinel.NewConfigError(fmt.Sprintf("rule %d has no operation", i)))
			continue
		}
		if r.Public && (len(r.Require) > 0 || len(r.AnyOf) > 0) {
			errs = append(errs, sentinel.NewConfigError("rule "+r.Operation+" is public but lists authorities"))
		}
		if !r.Public && len(r.Require) == 0 && len(r.AnyOf) == 0 {
			errs = append(errs, sentinel.NewConfigError("rule "+r.Operation+" lists no authorities; mark it public"))
		}
	}
	for name := range f.Slots {
		if name == chain.SlotFirst || name == chain.SlotLast {
			errs = append(errs, sentinel.NewConfigError("slot "+name+" cannot be redefined"))
		}
	}
	return errors.Join(errs...)
}

// EngineConfig returns the decision settings.
func (f *File) EngineConfig() sentinel.Config { return f.Config }

// Rule converts a RuleSpec into an AccessRule.
func (r RuleSpec) Rule() sentinel.AccessRule {
	if r.Public {
		return sentinel.Public()
	}
	var groups [][]string
	if len(r.Require) > 0 {
		groups = append(groups, r.Require)
	}
	groups = append(groups, r.AnyOf...)
	return sentinel.GroupsFromStrings(groups)
}

// Registry registers every rule and returns the frozen registry.
func (f *File) Registry() (*sentinel.Registry, error) {
	reg := sentinel.NewRegistry()
	var errs []error
	for _, r := range f.Rules {
		if err := reg.Register(r.Operation, r.Rule()); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	reg.Freeze()
	return reg, nil
}

// SlotTable returns the canonical slots extended with the file's slots.
func (f *File) SlotTable() chain.SlotTable {
	return chain.DefaultSlots().With(f.Slots)
}

// Declarations binds each filter spec to its behavior. A spec whose
// behavior is missing is a configuration error.
func (f *File) Declarations(behaviors map[string]chain.Filter) ([]chain.Declaration, error) {
	var errs []error
	out := make([]chain.Declaration, 0, len(f.Filters))
	for _, spec := range f.Filters {
		ref := spec.Ref
		if ref == "" {
			ref = spec.Name
		}
		behavior, ok := behaviors[ref]
		if !ok {
			errs = append(errs, sentinel.NewConfigError(
				fmt.Sprintf("filter %s refers to unknown behavior %q", spec.Name, ref), spec.Name))
			continue
		}
		out = append(out, chain.Declaration{
			Name:     spec.Name,
			Filter:   behavior,
			After:    spec.After,
			Before:   spec.Before,
			Position: spec.Position,
			Order:    spec.Order,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Chain resolves the file's filters against its slot table and builds the
// chain. Extra descriptors, such as the standard filters, are built with
// the declared ones.
func (f *File) Chain(behaviors map[string]chain.Filter, extra []*chain.Descriptor, opts ...chain.BuilderOption) (*chain.Chain, error) {
	decls, err := f.Declarations(behaviors)
	if err != nil {
		return nil, err
	}
	descs, err := chain.NewResolver(f.SlotTable()).Resolve(decls)
	if err != nil {
		return nil, err
	}
	all := make([]*chain.Descriptor, 0, len(extra)+len(descs))
	all = append(all, extra...)
	return chain.NewBuilder(opts...).Build(append(all, descs...))
}
