package chain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/xraph/sentinel"
)

// Canonical slot names.
const (
	SlotFirst                     = "FIRST"
	SlotChannelFilter             = "CHANNEL_FILTER"
	SlotConcurrentSessionFilter   = "CONCURRENT_SESSION_FILTER"
	SlotSessionContextIntegration = "SESSION_CONTEXT_INTEGRATION_FILTER"
	SlotLogoutFilter              = "LOGOUT_FILTER"
	SlotX509Filter                = "X509_FILTER"
	SlotPreAuthFilter             = "PRE_AUTH_FILTER"
	SlotCASProcessingFilter       = "CAS_PROCESSING_FILTER"
	SlotAuthenticationProcessing  = "AUTHENTICATION_PROCESSING_FILTER"
	SlotOpenIDProcessingFilter    = "OPENID_PROCESSING_FILTER"
	SlotLoginPageFilter           = "LOGIN_PAGE_FILTER"
	SlotBasicProcessingFilter     = "BASIC_PROCESSING_FILTER"
	SlotServletAPISupportFilter   = "SERVLET_API_SUPPORT_FILTER"
	SlotRememberMeFilter          = "REMEMBER_ME_FILTER"
	SlotAnonymousFilter           = "ANONYMOUS_FILTER"
	SlotExceptionTranslation      = "EXCEPTION_TRANSLATION_FILTER"
	SlotNTLMFilter                = "NTLM_FILTER"
	SlotFilterSecurityInterceptor = "FILTER_SECURITY_INTERCEPTOR"
	SlotSwitchUserFilter          = "SWITCH_USER_FILTER"
	SlotLast                      = "LAST"
)

// SlotSpacing is the distance between consecutive canonical slots.
const SlotSpacing = 100

var canonicalSlots = []string{
	SlotChannelFilter,
	SlotConcurrentSessionFilter,
	SlotSessionContextIntegration,
	SlotLogoutFilter,
	SlotX509Filter,
	SlotPreAuthFilter,
	SlotCASProcessingFilter,
	SlotAuthenticationProcessing,
	SlotOpenIDProcessingFilter,
	SlotLoginPageFilter,
	SlotBasicProcessingFilter,
	SlotServletAPISupportFilter,
	SlotRememberMeFilter,
	SlotAnonymousFilter,
	SlotExceptionTranslation,
	SlotNTLMFilter,
	SlotFilterSecurityInterceptor,
	SlotSwitchUserFilter,
}

// SlotTable maps symbolic slot names to integer positions.
type SlotTable map[string]int

// DefaultSlots returns a fresh copy of the canonical slot table: FIRST at
// the minimum int, the canonical filters at multiples of SlotSpacing in
// chain order, LAST at the maximum int.
func DefaultSlots() SlotTable {
	t := make(SlotTable, len(canonicalSlots)+2)
	t[SlotFirst] = math.MinInt
	for i, name := range canonicalSlots {
		t[name] = (i + 1) * SlotSpacing
	}
	t[SlotLast] = math.MaxInt
	return t
}

// With returns a copy of t with extra slots added or overridden.
func (t SlotTable) With(extra map[string]int) SlotTable {
	out := make(SlotTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Slot returns the position of a symbolic name.
func (t SlotTable) Slot(name string) (int, bool) {
	v, ok := t[name]
	return v, ok
}

// Names returns the slot names sorted by position.
func (t SlotTable) Names() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if t[out[i]] != t[out[j]] {
			return t[out[i]] < t[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Declaration places a named filter in the chain. Exactly one of After,
// Before and Position must be set, unless Order is set on its own. Anchors
// are slot names or integer literals. When Order is set together with a
// placement, the placement is still validated and Order wins.
type Declaration struct {
	Name     string
	Filter   Filter
	After    string
	Before   string
	Position string
	Order    *int
}

// Resolver turns declarations into ordered descriptors against a slot table.
type Resolver struct {
	slots SlotTable
}

// NewResolver returns a Resolver for slots. A nil table means DefaultSlots.
func NewResolver(slots SlotTable) *Resolver {
	if slots == nil {
		slots = DefaultSlots()
	}
	return &Resolver{slots: slots}
}

// Slots returns the resolver's slot table.
func (r *Resolver) Slots() SlotTable { return r.slots }

// Resolve validates every declaration and returns one Explicit descriptor
// per declaration, in declaration order. All problems are reported
// together; each is a *sentinel.ConfigError.
func (r *Resolver) Resolve(decls []Declaration) ([]*Descriptor, error) {
	var errs []error
	out := make([]*Descriptor, 0, len(decls))
	names := make(map[string]struct{}, len(decls))
	byOrder := make(map[int][]string, len(decls))

	for _, d := range decls {
		if d.Name == "" {
			errs = append(errs, sentinel.NewConfigError("filter declaration has no name"))
			continue
		}
		if _, dup := names[d.Name]; dup {
			errs = append(errs, sentinel.NewConfigError("duplicate filter name "+d.Name, d.Name))
			continue
		}
		names[d.Name] = struct{}{}
		if d.Filter == nil {
			errs = append(errs, sentinel.NewConfigError("filter "+d.Name+" has no behavior", d.Name))
			continue
		}

		n, err := r.order(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		byOrder[n] = append(byOrder[n], d.Name)
		out = append(out, NewDescriptor(d.Name, d.Filter, Explicit(n)))
	}

	errs = append(errs, collisions(byOrder)...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (r *Resolver) order(d Declaration) (int, error) {
	set := 0
	for _, v := range []string{d.After, d.Before, d.Position} {
		if v != "" {
			set++
		}
	}
	switch {
	case set > 1:
		return 0, sentinel.NewConfigError(
			"filter "+d.Name+" must declare only one of after, before or position", d.Name)
	case set == 0 && d.Order == nil:
		return 0, sentinel.NewConfigError(
			"filter "+d.Name+" must declare one of after, before, position or order", d.Name)
	}

	var n int
	switch {
	case d.Position != "":
		v, err := r.anchor(d.Name, d.Position)
		if err != nil {
			return 0, err
		}
		n = v
	case d.After != "":
		v, err := r.anchor(d.Name, d.After)
		if err != nil {
			return 0, err
		}
		if v == math.MaxInt {
			return 0, sentinel.NewConfigError("filter "+d.Name+" cannot be placed after "+d.After, d.Name)
		}
		n = v + 1
	case d.Before != "":
		v, err := r.anchor(d.Name, d.Before)
		if err != nil {
			return 0, err
		}
		if v == math.MinInt {
			return 0, sentinel.NewConfigError("filter "+d.Name+" cannot be placed before "+d.Before, d.Name)
		}
		n = v - 1
	}
	if d.Order != nil {
		n = *d.Order
	}
	return n, nil
}

func (r *Resolver) anchor(filter, value string) (int, error) {
	if v, ok := r.slots.Slot(value); ok {
		return v, nil
	}
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return v, nil
	}
	return 0, sentinel.NewConfigError(
		fmt.Sprintf("filter %s refers to unknown slot %q", filter, value), filter)
}

func collisions(byOrder map[int][]string) []error {
	orders := make([]int, 0, len(byOrder))
	for n, names := range byOrder {
		if len(names) > 1 {
			orders = append(orders, n)
		}
	}
	sort.Ints(orders)
	errs := make([]error, 0, len(orders))
	for _, n := range orders {
		errs = append(errs, sentinel.NewConfigError(
			fmt.Sprintf("filters share position %d", n), byOrder[n]...))
	}
	return errs
}
