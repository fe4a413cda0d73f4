package sentinel

import "strings"

// AuthorityGroup is a set of authorities of which a caller must hold at
// least one for the group to grant access.
type AuthorityGroup []Authority

// AuthoritiesOf converts plain strings into authorities.
func AuthoritiesOf(names ...string) []Authority {
	out := make([]Authority, 0, len(names))
	for _, n := range names {
		out = append(out, Authority(n))
	}
	return out
}

// MatchAuthorities reports whether the granted authorities intersect the
// required group. Matching is exact; an empty group never matches.
func MatchAuthorities(granted []Authority, required AuthorityGroup) bool {
	if len(granted) == 0 || len(required) == 0 {
		return false
	}
	for _, r := range required {
		for _, g := range granted {
			if g == r {
				return true
			}
		}
	}
	return false
}

// matchedAuthority returns the first required authority found in granted.
func matchedAuthority(granted []Authority, required AuthorityGroup) (Authority, bool) {
	for _, r := range required {
		for _, g := range granted {
			if g == r {
				return r, true
			}
		}
	}
	return "", false
}

// matchOperation checks if an operation pattern matches an operation
// identifier. Supports a bare "*" and a single trailing '*'
// (e.g., "BusinessService.someUser*" matches "BusinessService.someUserMethod1").
func matchOperation(pattern, operation string) bool {
	if pattern == "*" || pattern == operation {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(operation, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

func isPattern(p string) bool { return strings.HasSuffix(p, "*") }

func joinAuthorities(as []Authority) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}
