package sentinel

// Authentication is a resolved caller: a principal, its credential
// material and the authorities it was granted. It is immutable once
// constructed; use the With* methods to derive modified copies.
type Authentication struct {
	principal   string
	credentials any
	authorities []Authority
	details     map[string]any
	anonymous   bool
}

// NewAuthentication builds an Authentication. Authorities keep their
// order; duplicates and empty tokens are dropped.
func NewAuthentication(principal string, credentials any, authorities ...Authority) *Authentication {
	return &Authentication{
		principal:   principal,
		credentials: credentials,
		authorities: normalizeAuthorities(authorities),
	}
}

// Anonymous returns the authentication used for callers that presented no
// credentials. key identifies the issuing filter and is kept as credentials.
func Anonymous(key string, authorities ...Authority) *Authentication {
	if len(authorities) == 0 {
		authorities = []Authority{AuthorityAnonymous}
	}
	a := NewAuthentication(AnonymousPrincipal, key, authorities...)
	a.anonymous = true
	return a
}

// Principal returns the caller identifier.
func (a *Authentication) Principal() string { return a.principal }

// Credentials returns the credential material. It is opaque to this
// package and may be nil after WithoutCredentials.
func (a *Authentication) Credentials() any { return a.credentials }

// IsAnonymous reports whether a was created by Anonymous.
func (a *Authentication) IsAnonymous() bool { return a.anonymous }

// Authorities returns a copy of the granted authorities in grant order.
func (a *Authentication) Authorities() []Authority {
	out := make([]Authority, len(a.authorities))
	copy(out, a.authorities)
	return out
}

// HasAuthority reports whether auth was granted.
func (a *Authentication) HasAuthority(auth Authority) bool {
	for _, g := range a.authorities {
		if g == auth {
			return true
		}
	}
	return false
}

// Detail returns a detail value attached with WithDetail.
func (a *Authentication) Detail(key string) (any, bool) {
	v, ok := a.details[key]
	return v, ok
}

// WithDetail returns a copy of a carrying an extra detail value.
func (a *Authentication) WithDetail(key string, value any) *Authentication {
	c := a.clone()
	if c.details == nil {
		c.details = make(map[string]any, 1)
	}
	c.details[key] = value
	return c
}

// WithoutCredentials returns a copy of a with the credentials erased.
func (a *Authentication) WithoutCredentials() *Authentication {
	c := a.clone()
	c.credentials = nil
	return c
}

func (a *Authentication) clone() *Authentication {
	c := *a
	c.authorities = a.Authorities()
	if a.details != nil {
		c.details = make(map[string]any, len(a.details))
		for k, v := range a.details {
			c.details[k] = v
		}
	}
	return &c
}

func normalizeAuthorities(in []Authority) []Authority {
	seen := make(map[Authority]struct{}, len(in))
	out := make([]Authority, 0, len(in))
	for _, a := range in {
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
