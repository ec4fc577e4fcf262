package security

import (
	"strings"
)

// RolePrefix marks a canonical authority string
const RolePrefix = "ROLE_"

// RoleExtractor reads one permission encoding from a claim set. Extract
// reports false when the encoding is absent or empty.
type RoleExtractor struct {
	Name    string
	Extract func(claims *ClaimSet) ([]string, bool)
}

// DefaultExtractors is the precedence used for every token: roles, then
// authorities, then role.
var DefaultExtractors = []RoleExtractor{
	{Name: "roles", Extract: rolesClaim},
	{Name: "authorities", Extract: authoritiesClaim},
	{Name: "role", Extract: roleClaim},
}

func rolesClaim(claims *ClaimSet) ([]string, bool) {
	if len(claims.Roles) == 0 {
		return nil, false
	}
	return append([]string(nil), claims.Roles...), true
}

func authoritiesClaim(claims *ClaimSet) ([]string, bool) {
	if len(claims.Authorities) == 0 {
		return nil, false
	}
	roles := make([]string, 0, len(claims.Authorities))
	for _, authority := range claims.Authorities {
		roles = append(roles, StripRolePrefix(authority))
	}
	return roles, true
}

func roleClaim(claims *ClaimSet) ([]string, bool) {
	if claims.Role == "" {
		return nil, false
	}
	return []string{string(claims.Role)}, true
}

// Resolver maps a claim set to bare role names using an ordered list of
// extractors. The first extractor with a non-empty result wins.
type Resolver struct {
	extractors []RoleExtractor
}

// NewResolver creates a resolver; with no extractors it uses DefaultExtractors
func NewResolver(extractors ...RoleExtractor) *Resolver {
	if len(extractors) == 0 {
		extractors = DefaultExtractors
	}
	return &Resolver{extractors: extractors}
}

var defaultResolver = NewResolver()

// Resolve returns the bare role names and the name of the extractor that
// produced them. It never fails: missing or unreadable role data yields an
// empty, non-nil slice and an empty source.
func (r *Resolver) Resolve(claims *ClaimSet) (roles []string, source string) {
	defer func() {
		if recover() != nil {
			roles, source = []string{}, ""
		}
	}()

	if claims == nil {
		return []string{}, ""
	}
	for _, extractor := range r.extractors {
		if found, ok := extractor.Extract(claims); ok && len(found) > 0 {
			return found, extractor.Name
		}
	}
	return []string{}, ""
}

// Roles returns the bare role names carried by claims
func (r *Resolver) Roles(claims *ClaimSet) []string {
	roles, _ := r.Resolve(claims)
	return roles
}

// Authorities returns Roles with RolePrefix added to every element, so that
// stripping one prefix from each authority gives back Roles exactly.
func (r *Resolver) Authorities(claims *ClaimSet) []string {
	roles := r.Roles(claims)
	authorities := make([]string, len(roles))
	for i, role := range roles {
		authorities[i] = RolePrefix + role
	}
	return authorities
}

// ResolveRoles resolves roles with DefaultExtractors
func ResolveRoles(claims *ClaimSet) []string {
	return defaultResolver.Roles(claims)
}

// ResolveAuthorities resolves authorities with DefaultExtractors
func ResolveAuthorities(claims *ClaimSet) []string {
	return defaultResolver.Authorities(claims)
}

// ToAuthority prefixes role with RolePrefix unless it already carries it
func ToAuthority(role string) string {
	if strings.HasPrefix(role, RolePrefix) {
		return role
	}
	return RolePrefix + role
}

// StripRolePrefix removes one leading RolePrefix. The match is case-sensitive.
func StripRolePrefix(authority string) string {
	return strings.TrimPrefix(authority, RolePrefix)
}
