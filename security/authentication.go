package security

// Authentication is the identity bound to one request. It is immutable once
// built; a nil *Authentication means the request is anonymous, and every
// method is safe to call on nil.
type Authentication struct {
	username    string
	authorities []string
}

// Build creates an authenticated context for username. Each role is mapped
// to its authority string with ToAuthority, keeping order.
func Build(username string, roles []string) *Authentication {
	authorities := make([]string, 0, len(roles))
	for _, role := range roles {
		authorities = append(authorities, ToAuthority(role))
	}
	return &Authentication{
		username:    username,
		authorities: authorities,
	}
}

// Username returns the authenticated subject
func (a *Authentication) Username() string {
	if a == nil {
		return ""
	}
	return a.username
}

// Principal returns the principal reference, which is the username
func (a *Authentication) Principal() string {
	return a.Username()
}

// IsAuthenticated is true for every built context and false for nil
func (a *Authentication) IsAuthenticated() bool {
	return a != nil
}

// Authorities returns a copy of the canonical authority strings
func (a *Authentication) Authorities() []string {
	if a == nil {
		return []string{}
	}
	return append([]string{}, a.authorities...)
}

// Roles returns the authorities with RolePrefix removed
func (a *Authentication) Roles() []string {
	if a == nil {
		return []string{}
	}
	roles := make([]string, len(a.authorities))
	for i, authority := range a.authorities {
		roles[i] = StripRolePrefix(authority)
	}
	return roles
}

// HasAuthority checks for an exact authority string
func (a *Authentication) HasAuthority(authority string) bool {
	if a == nil {
		return false
	}
	for _, granted := range a.authorities {
		if granted == authority {
			return true
		}
	}
	return false
}

// HasRole checks for the authority derived from role
func (a *Authentication) HasRole(role string) bool {
	return a.HasAuthority(ToAuthority(role))
}

// HasAnyRole checks if the context holds at least one of roles
func (a *Authentication) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}
