package security

import (
	"time"
)

// Authenticator turns a raw bearer token into an Authentication. The stages
// run in a fixed order: signature, policy, optional expiration, role
// resolution, context build.
type Authenticator struct {
	verifier          *SignatureVerifier
	policy            *PolicyChecker
	resolver          *Resolver
	requireExpiration bool
}

// AuthenticatorOption configures an Authenticator
type AuthenticatorOption func(*Authenticator)

// WithRequireExpiration rejects tokens for which PolicyChecker.IsExpired is
// true, including tokens that carry no exp claim at all
func WithRequireExpiration(require bool) AuthenticatorOption {
	return func(a *Authenticator) {
		a.requireExpiration = require
	}
}

// WithResolver replaces the default role resolver
func WithResolver(resolver *Resolver) AuthenticatorOption {
	return func(a *Authenticator) {
		a.resolver = resolver
	}
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(verifier *SignatureVerifier, policy *PolicyChecker, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		verifier: verifier,
		policy:   policy,
		resolver: defaultResolver,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TokenInfo describes a validated token. Authorities holds the granted
// authorities as Build computes them, with RolePrefix added only where a role
// lacks it, so it matches Authentication.Authorities for the same token. It
// differs from ResolveAuthorities, which prefixes every resolved role
// unconditionally: roles ["ROLE_ADMIN"] give ["ROLE_ADMIN"] here and
// ["ROLE_ROLE_ADMIN"] there.
type TokenInfo struct {
	Username    string     `json:"username"`
	TokenType   string     `json:"tokenType"`
	Roles       []string   `json:"roles"`
	Authorities []string   `json:"authorities"`
	RoleSource  string     `json:"roleSource,omitempty"`
	IssuedAt    *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Authenticate validates token and builds the request authentication
func (a *Authenticator) Authenticate(token string) (*Authentication, error) {
	claims, err := a.validate(token)
	if err != nil {
		return nil, err
	}
	return Build(claims.Subject, a.resolver.Roles(claims)), nil
}

// Introspect validates token like Authenticate and describes its claims
func (a *Authenticator) Introspect(token string) (*TokenInfo, error) {
	claims, err := a.validate(token)
	if err != nil {
		return nil, err
	}

	roles, source := a.resolver.Resolve(claims)
	info := &TokenInfo{
		Username:    claims.Subject,
		TokenType:   claims.TokenType,
		Roles:       roles,
		Authorities: Build(claims.Subject, roles).Authorities(),
		RoleSource:  source,
	}
	if claims.IssuedAt != nil {
		issuedAt := claims.IssuedAt.Time
		info.IssuedAt = &issuedAt
	}
	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time
		info.ExpiresAt = &expiresAt
	}
	return info, nil
}

// RequiresExpiration reports whether tokens without a future exp are rejected
func (a *Authenticator) RequiresExpiration() bool {
	return a.requireExpiration
}

func (a *Authenticator) validate(token string) (*ClaimSet, error) {
	claims, err := a.verifier.Decode(token)
	if err != nil {
		return nil, err
	}
	if err := a.policy.Check(claims); err != nil {
		return nil, err
	}
	if a.requireExpiration && a.policy.IsExpired(claims) {
		return nil, &PolicyViolation{Reason: ReasonExpired}
	}
	return claims, nil
}
