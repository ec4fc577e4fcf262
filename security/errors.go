package security

import (
	"errors"
)

var (
	// ErrInvalidSignature is returned when a token is malformed, expired per its
	// registered claims, or signed with a different key
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrPolicyViolation matches any *PolicyViolation through errors.Is
	ErrPolicyViolation = errors.New("token policy violation")

	// ErrMissingSubject is returned when a verified token carries no subject
	ErrMissingSubject = errors.New("missing subject claim")
)

// Outcome labels the result of one authentication attempt for logs and metrics
type Outcome string

const (
	OutcomeAuthenticated    Outcome = "authenticated"
	OutcomeAnonymous        Outcome = "anonymous"
	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeMissingSubject   Outcome = "missing_subject"
	OutcomeWrongType        Outcome = "wrong_type"
	OutcomeNotYetValid      Outcome = "not_yet_valid"
	OutcomeExpired          Outcome = "expired"
)

// OutcomeOf classifies an error returned by Authenticator.Authenticate.
// A nil error is reported as authenticated.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeAuthenticated
	}

	var violation *PolicyViolation
	if errors.As(err, &violation) {
		switch violation.Reason {
		case ReasonWrongType:
			return OutcomeWrongType
		case ReasonNotYetValid:
			return OutcomeNotYetValid
		case ReasonExpired:
			return OutcomeExpired
		}
	}

	if errors.Is(err, ErrMissingSubject) {
		return OutcomeMissingSubject
	}
	return OutcomeInvalidSignature
}
