package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignatureVerifier validates HMAC-signed tokens with a shared secret and
// decodes their claims. Registered time claims (exp, nbf) are enforced with
// the library's own semantics; iat is left to PolicyChecker.
type SignatureVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// VerifierOption configures a SignatureVerifier
type VerifierOption func(*verifierOptions)

type verifierOptions struct {
	now    func() time.Time
	leeway time.Duration
}

// WithTimeFunc sets the clock used for exp and nbf
func WithTimeFunc(now func() time.Time) VerifierOption {
	return func(o *verifierOptions) {
		o.now = now
	}
}

// WithLeeway allows clock skew when evaluating exp and nbf
func WithLeeway(leeway time.Duration) VerifierOption {
	return func(o *verifierOptions) {
		o.leeway = leeway
	}
}

// NewSignatureVerifier creates a verifier for the given secret
func NewSignatureVerifier(secret []byte, opts ...VerifierOption) *SignatureVerifier {
	o := &verifierOptions{}
	for _, opt := range opts {
		opt(o)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
	}
	if o.now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(o.now))
	}
	if o.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(o.leeway))
	}

	return &SignatureVerifier{
		secret: append([]byte(nil), secret...),
		parser: jwt.NewParser(parserOpts...),
	}
}

// Decode verifies the token and returns its claims. Every failure wraps
// ErrInvalidSignature and no claims are returned with it.
func (v *SignatureVerifier) Decode(tokenString string) (*ClaimSet, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidSignature)
	}

	claims := &ClaimSet{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, ErrMissingSubject)
	}

	return claims, nil
}

func (v *SignatureVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if len(v.secret) == 0 {
		return nil, errors.New("signing secret not configured")
	}
	return v.secret, nil
}
