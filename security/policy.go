package security

import (
	"time"
)

// AccessTokenType is the only token type accepted for request authentication
const AccessTokenType = "access"

// PolicyReason names the rule a token failed
type PolicyReason string

const (
	ReasonWrongType   PolicyReason = "wrong-type"
	ReasonNotYetValid PolicyReason = "not-yet-valid"
	ReasonExpired     PolicyReason = "expired"
)

// PolicyViolation is returned for a well-formed token that policy rejects
type PolicyViolation struct {
	Reason PolicyReason
}

func (v *PolicyViolation) Error() string {
	return "token policy violation: " + string(v.Reason)
}

// Is lets errors.Is(err, ErrPolicyViolation) match any violation
func (v *PolicyViolation) Is(target error) bool {
	return target == ErrPolicyViolation
}

// PolicyChecker enforces token type and issuance time rules
type PolicyChecker struct {
	now func() time.Time
}

// NewPolicyChecker creates a checker; a nil clock means time.Now
func NewPolicyChecker(now func() time.Time) *PolicyChecker {
	if now == nil {
		now = time.Now
	}
	return &PolicyChecker{now: now}
}

// Check requires type "access" and an issuedAt that is present and not after
// now. Expiration is not examined here; see IsExpired.
func (p *PolicyChecker) Check(claims *ClaimSet) error {
	if claims == nil || claims.TokenType != AccessTokenType {
		return &PolicyViolation{Reason: ReasonWrongType}
	}
	if claims.IssuedAt == nil || claims.IssuedAt.Time.After(p.now()) {
		return &PolicyViolation{Reason: ReasonNotYetValid}
	}
	return nil
}

// IsExpired reports whether claims has no expiration or one that is not after now
func (p *PolicyChecker) IsExpired(claims *ClaimSet) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.Time.After(p.now())
}
